// Command queryexec is a thin demonstration binary proving the query and
// execution core's wiring end to end: TDS SQL queries, FetchXML queries, and
// dependency-ordered bulk export/import. It is not the CLI command surface
// named in spec.md's Non-goals (subcommand/plugin-CRUD/device-code/MCP
// collaborators are out of scope) -- this binary only exercises the core
// packages, the way the teacher's cmd/*def binaries exercise schema/database
// without being a general-purpose database CLI.
package main

import (
	"context"
	"fmt"
	"log"
	"net/url"
	"os"
	"syscall"
	"time"

	"github.com/jessevdk/go-flags"
	"github.com/k0kubun/pp/v3"
	"golang.org/x/term"

	"github.com/dvsuite/queryexec/bulk"
	"github.com/dvsuite/queryexec/bulk/export"
	"github.com/dvsuite/queryexec/bulk/importer"
	"github.com/dvsuite/queryexec/errs"
	"github.com/dvsuite/queryexec/fetchxml"
	"github.com/dvsuite/queryexec/graph"
	"github.com/dvsuite/queryexec/logx"
	"github.com/dvsuite/queryexec/pool"
	"github.com/dvsuite/queryexec/progress"
	"github.com/dvsuite/queryexec/tds"
	"github.com/dvsuite/queryexec/util"
	"github.com/dvsuite/queryexec/vars"
)

var version string

type options struct {
	EnvURL        string `long:"env-url" description:"Dataverse environment URL, e.g. https://org.crm.dynamics.com" value-name:"url"`
	Token         string `long:"token" description:"Bearer token, overridden by $QUERYEXEC_TOKEN" value-name:"token"`
	TokenPrompt   bool   `long:"token-prompt" description:"Force a masked bearer-token prompt"`
	Database      string `long:"database" description:"TDS database name" value-name:"db_name"`

	Sql      string `long:"sql" description:"Run one T-SQL statement against the TDS read replica" value-name:"statement"`
	FetchXml string `long:"fetchxml" description:"Run a FetchXML document file against the Web API" value-name:"file"`
	MaxRows  int    `long:"max-rows" description:"Hard cap on rows returned" default:"0"`

	BulkExport string `long:"bulk-export" description:"Export --schema's entities into dir" value-name:"dir"`
	BulkImport string `long:"bulk-import" description:"Import a prior bulk-export's dir into this environment" value-name:"dir"`
	Schema     string `long:"schema" description:"YAML entity-schema file for bulk export/import" value-name:"file"`
	Plan       string `long:"plan" description:"YAML PlanConfig overriding pageSize/batchSize/retryCap" value-name:"file"`
	Checkpoint string `long:"checkpoint" description:"Checkpoint file path for bulk-import resume" value-name:"file" default:"checkpoint.yaml"`

	MaxConcurrent  int `long:"max-concurrent" description:"Pool degree-of-parallelism cap" default:"4"`
	ProbeTimeoutMs int `long:"probe-timeout-ms" description:"Adaptive DOP probe timeout" default:"5000"`
	RetryCap       int `long:"retry-cap" description:"Pool/importer retry cap" default:"3"`

	Debug   bool `long:"debug" description:"Pretty-print results with k0kubun/pp"`
	Help    bool `long:"help" description:"Show this help"`
	Version bool `long:"version" description:"Show this version"`
}

func parseOptions(args []string) *options {
	var opts options
	parser := flags.NewParser(&opts, flags.None)
	parser.Usage = "[options]"
	if _, err := parser.ParseArgs(args); err != nil {
		log.Fatal(err)
	}
	if opts.Help {
		parser.WriteHelp(os.Stdout)
		os.Exit(0)
	}
	if opts.Version {
		fmt.Println(version)
		os.Exit(0)
	}
	return &opts
}

func resolveToken(opts *options) string {
	if tok, ok := os.LookupEnv("QUERYEXEC_TOKEN"); ok && !opts.TokenPrompt {
		return tok
	}
	if opts.Token != "" && !opts.TokenPrompt {
		return opts.Token
	}
	fmt.Print("Enter bearer token: ")
	tok, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		log.Fatal(err)
	}
	return string(tok)
}

func main() {
	util.InitSlog()
	opts := parseOptions(os.Args[1:])
	if opts.EnvURL == "" {
		fmt.Print("No --env-url given!\n\n")
		os.Exit(1)
	}
	token := resolveToken(opts)
	ctx := context.Background()
	logger := logx.StdoutLogger{}

	mint := func(ctx context.Context) (string, error) { return token, nil }
	p := pool.New(newSeedFactory(mint), opts.EnvURL, pool.Config{
		MaxConcurrent: opts.MaxConcurrent,
		ProbeTimeout:  time.Duration(opts.ProbeTimeoutMs) * time.Millisecond,
		RetryCap:      opts.RetryCap,
		ThrottleFloor: 1,
	})
	p.SetLogger(logger)
	if err := p.Init(ctx, nil); err != nil {
		log.Fatalf("pool init failed: %v", err)
	}
	defer p.Dispose()

	switch {
	case opts.Sql != "":
		runSql(ctx, opts, token, p)
	case opts.FetchXml != "":
		runFetchXml(ctx, opts, p)
	case opts.BulkExport != "":
		runBulkExport(ctx, opts, p, logger)
	case opts.BulkImport != "":
		runBulkImport(ctx, opts, p, logger)
	default:
		fmt.Println("Nothing to do: pass --sql, --fetchxml, --bulk-export, or --bulk-import.")
		os.Exit(1)
	}
}

func dump(debug bool, v any) {
	if debug {
		pp.Println(v)
		return
	}
	fmt.Printf("%+v\n", v)
}

func runSql(ctx context.Context, opts *options, token string, p *pool.Pool) {
	host := hostOf(opts.EnvURL)
	reseed := func(ctx context.Context) error {
		p.InvalidateSeed()
		_, err := p.GetLease(ctx)
		return err
	}
	exec, err := tds.NewExecutor(host, opts.Database, func(ctx context.Context) (string, error) { return token, nil }, reseed)
	if err != nil {
		log.Fatalf("tds executor: %v", err)
	}
	defer exec.Close()

	scope := vars.New()
	result, err := exec.ExecuteSql(ctx, scope, opts.Sql, opts.MaxRows)
	if err != nil {
		if errs.Is(err, errs.QueryFailed) {
			fmt.Printf("ERROR_MESSAGE()=%q ERROR_NUMBER()=%v\n", scope.Get("@@ERROR_MESSAGE").Raw(), scope.Get("@@ERROR_NUMBER").Raw())
		}
		log.Fatalf("query failed: %v", err)
	}
	dump(opts.Debug, result)
}

func runFetchXml(ctx context.Context, opts *options, p *pool.Pool) {
	data, err := os.ReadFile(opts.FetchXml)
	if err != nil {
		log.Fatalf("reading fetchxml file: %v", err)
	}
	doc, err := fetchxml.Parse(string(data))
	if err != nil {
		log.Fatalf("parsing fetchxml: %v", err)
	}

	lease, err := p.GetLease(ctx)
	if err != nil {
		log.Fatalf("get lease: %v", err)
	}
	defer lease.Release()

	client := newWebAPIClient(opts.EnvURL, lease)
	entityName, primaryIDField := entityAndPrimaryID(doc)
	result, err := fetchxml.AllPages(ctx, client, doc, entityName, primaryIDField, opts.MaxRows)
	if err != nil {
		log.Fatalf("fetchxml query failed: %v", err)
	}
	dump(opts.Debug, result)
}

func runBulkExport(ctx context.Context, opts *options, p *pool.Pool, logger logx.Logger) {
	requireSchema(opts)
	entities, universe, err := loadSchema(opts.Schema)
	if err != nil {
		log.Fatalf("loading schema: %v", err)
	}
	g, err := graph.Build(entities, universe)
	if err != nil {
		log.Fatalf("building graph: %v", err)
	}
	if err := graph.CheckCycles(g); err != nil {
		log.Fatalf("schema has a dependency cycle: %v", err)
	}

	sink, err := newFileSink(opts.BulkExport)
	if err != nil {
		log.Fatalf("preparing export dir: %v", err)
	}

	ex := &export.Exporter{
		Pool:      p,
		NewClient: func(lease *pool.Lease) fetchxml.Client { return newWebAPIClient(opts.EnvURL, lease) },
		Source:    &schemaFetchSource{entities: universe},
		Sink:      sink,
		Progress:  progress.LogSink{Log: logger},
	}
	if err := export.Export(ctx, g, ex); err != nil {
		log.Fatalf("export failed: %v", err)
	}
	if err := sink.writeManifest(); err != nil {
		log.Fatalf("writing manifest: %v", err)
	}
	fmt.Println("bulk export complete:", opts.BulkExport)
}

func runBulkImport(ctx context.Context, opts *options, p *pool.Pool, logger logx.Logger) {
	requireSchema(opts)
	entities, universe, err := loadSchema(opts.Schema)
	if err != nil {
		log.Fatalf("loading schema: %v", err)
	}
	g, err := graph.Build(entities, universe)
	if err != nil {
		log.Fatalf("building graph: %v", err)
	}
	plan, err := graph.Plan(g)
	if err != nil {
		log.Fatalf("planning tiers: %v", err)
	}

	deadLetter, err := bulk.NewDeadLetterWriter(opts.BulkImport + "/deadletter")
	if err != nil {
		log.Fatalf("preparing dead-letter dir: %v", err)
	}
	defer deadLetter.Close()

	im := &importer.Importer{
		Target:         &webAPITarget{envURL: opts.EnvURL, pool: p},
		Source:         &fileSource{dir: opts.BulkImport},
		Graph:          g,
		CheckpointPath: opts.Checkpoint,
		DeadLetter:     deadLetter,
		Progress:       progress.LogSink{Log: logger},
		Log:            logger,
		Cfg:            importer.Config{RetryCap: opts.RetryCap},
		MaxConcurrent:  opts.MaxConcurrent,
	}
	if err := im.Import(ctx, plan); err != nil {
		log.Fatalf("import failed: %v", err)
	}
	fmt.Println("bulk import complete")
}

// hostOf extracts the bare hostname queryexec's TDS executor dials from
// --env-url, which is given as a full https:// Dataverse environment URL
// (the Web API and the TDS endpoint share the same environment host, only
// the port differs -- tds.DefaultPort).
func hostOf(envURL string) string {
	u, err := url.Parse(envURL)
	if err != nil {
		return envURL
	}
	if u.Hostname() != "" {
		return u.Hostname()
	}
	return envURL
}

// entityAndPrimaryID reads the fetch document's root entity name and derives
// its primary id field by Dataverse's fixed {entity}id convention, the same
// default schema.go's schemaFetchSource.FetchDoc falls back to.
func entityAndPrimaryID(doc *fetchxml.Document) (entityName, primaryIDField string) {
	if e := doc.Root.Child("entity"); e != nil {
		entityName, _ = e.Get("name")
	}
	return entityName, entityName + "id"
}

func requireSchema(opts *options) {
	if opts.Schema == "" {
		fmt.Println("--schema is required for bulk export/import")
		os.Exit(1)
	}
}
