// Command dexql analyses, plans and executes a set of demo queries against
// an in-memory catalog and prints their results.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"time"

	"dexql/pkg/analysis"
	"dexql/pkg/catalog"
	"dexql/pkg/config"
	"dexql/pkg/execution/consumer"
	"dexql/pkg/logging"
	"dexql/pkg/planner"
	"dexql/pkg/sql/tree"
	"dexql/pkg/types"
	"dexql/pkg/ui"
)

type arguments struct {
	ConfigPath string
	Algorithm  string
	Explain    bool
	MinAmount  float64
}

func main() {
	args := parseArguments()

	cfg, err := config.Load(args.ConfigPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if args.Algorithm != "" {
		cfg.Execution.JoinAlgorithm = args.Algorithm
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid join algorithm: %v", err)
		}
	}
	if err := logging.Init(cfg.LoggingConfig()); err != nil {
		log.Fatalf("Failed to initialize logging: %v", err)
	}
	defer logging.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, args); err != nil {
		fmt.Fprintln(os.Stderr, ui.NewRenderer(ui.NewStyles(ui.DefaultPalette)).Error(err))
		os.Exit(1)
	}
}

func parseArguments() arguments {
	var args arguments
	flag.StringVar(&args.ConfigPath, "config", "", "YAML configuration file")
	flag.StringVar(&args.Algorithm, "join", "", "Force a join algorithm (auto, nested_loop, block_nested_loop, hash_block, sorted_merge)")
	flag.BoolVar(&args.Explain, "explain", false, "Print the physical plan of every query")
	flag.Float64Var(&args.MinAmount, "min-amount", 3, "Lower bound passed as $1 of the join query; it also runs with twice the value")
	flag.Parse()
	return args
}

// query is one demo statement. With bulk set it runs once per bulk row and
// params is ignored.
type query struct {
	title  string
	body   *tree.QuerySpecification
	params []any
	bulk   [][]any
}

// execution is one planned run of a query.
type execution struct {
	title string
	plan  *planner.Plan
}

// prepare analyses q once and plans one execution per parameter row.
func prepare(analyzer *analysis.Analyzer, plans *planner.Planner, q query) ([]execution, error) {
	params, err := analysis.NewParameterContext(q.params, q.bulk...)
	if err != nil {
		return nil, err
	}
	stmt, err := analyzer.Analyze(&tree.Query{Body: q.body}, params)
	if err != nil {
		return nil, err
	}
	out := make([]execution, 0, params.BulkSize())
	for i := range params.BulkSize() {
		params.SetBulkIndex(i)
		p, err := plans.Plan(stmt, params.Values())
		if err != nil {
			return nil, err
		}
		title := q.title
		if len(q.bulk) > 0 {
			title = fmt.Sprintf("%s %v", q.title, params.Values())
		}
		out = append(out, execution{title: title, plan: p})
	}
	return out, nil
}

func run(ctx context.Context, cfg *config.Config, args arguments) error {
	meta, err := demoCatalog()
	if err != nil {
		return err
	}
	analyzer := analysis.NewAnalyzer(meta, nil, cfg.AnalysisSession())
	plans := planner.New(meta, cfg.PlannerOptions())
	render := ui.NewRenderer(ui.NewStyles(ui.DefaultPalette))

	var runs []execution
	for _, q := range demoQueries(args.MinAmount) {
		prepared, err := prepare(analyzer, plans, q)
		if err != nil {
			return err
		}
		runs = append(runs, prepared...)
	}

	jobs := make([]*consumer.Job, len(runs))
	results := make([]*consumer.Collecting, len(runs))
	for i, r := range runs {
		if args.Explain {
			fmt.Println(render.Plan(r.plan.Explain()))
		}
		results[i] = consumer.NewCollecting(0)
		jobs[i] = &consumer.Job{Name: r.title, Iterator: r.plan.Iterator, Receiver: results[i]}
	}

	executor := &consumer.Executor{
		Concurrency: cfg.Execution.Concurrency,
		LoadTimeout: cfg.Execution.LoadTimeout,
	}
	start := time.Now()
	if err := executor.Run(ctx, jobs...); err != nil {
		return err
	}
	elapsed := time.Since(start)
	logging.Info("demo queries finished", "queries", len(jobs), "elapsed", elapsed)

	for i, r := range runs {
		rows, err := results[i].Result(ctx)
		if err != nil {
			return err
		}
		fmt.Println(render.Result(r.title, r.plan.Columns, rows, elapsed))
		fmt.Println()
	}
	return nil
}

func demoCatalog() (*catalog.Memory, error) {
	m := catalog.NewMemory()
	tables := []*catalog.TableDescriptor{
		{Schema: catalog.DefaultSchema, Name: "users", Columns: []catalog.Column{
			{Name: "id", Type: types.Long},
			{Name: "name", Type: types.String},
			{Name: "country", Type: types.String},
		}},
		{Schema: catalog.DefaultSchema, Name: "orders", Columns: []catalog.Column{
			{Name: "id", Type: types.Long},
			{Name: "user_id", Type: types.Long},
			{Name: "amount", Type: types.Double},
			{Name: "created", Type: types.Timestamp},
		}},
	}
	for _, desc := range tables {
		if err := m.CreateTable(desc); err != nil {
			return nil, err
		}
	}
	if err := m.Insert(catalog.DefaultSchema, "users",
		[]any{1, "alice", "de"}, []any{2, "bob", nil}, []any{3, "carol", "fr"}, []any{4, "dave", "de"},
	); err != nil {
		return nil, err
	}
	day := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	return m, m.Insert(catalog.DefaultSchema, "orders",
		[]any{100, 1, 12.5, day},
		[]any{101, 3, 7.25, day.Add(24 * time.Hour)},
		[]any{102, 1, 2.0, day.Add(48 * time.Hour)},
		[]any{103, 4, 30.0, day.Add(72 * time.Hour)},
		[]any{104, 5, 9.99, day.Add(96 * time.Hour)},
	)
}

func demoQueries(minAmount float64) []query {
	// SELECT u.name, o.amount FROM users u JOIN orders o ON u.id = o.user_id WHERE o.amount > $1
	joined := &tree.QuerySpecification{
		Select: tree.Select{Items: []tree.SelectItem{
			&tree.SingleColumn{Expression: tree.Column("u", "name")},
			&tree.SingleColumn{Expression: tree.Column("o", "amount")},
		}},
		From: []tree.Relation{&tree.Join{
			Type:  tree.InnerJoin,
			Left:  &tree.AliasedRelation{Relation: &tree.Table{Name: tree.NewQualifiedName("users")}, Alias: "u"},
			Right: &tree.AliasedRelation{Relation: &tree.Table{Name: tree.NewQualifiedName("orders")}, Alias: "o"},
			Criteria: &tree.JoinOn{Expression: tree.Compare(tree.Equal,
				tree.Column("u", "id"), tree.Column("o", "user_id"))},
		}},
		Where: tree.Compare(tree.GreaterThan, tree.Column("o", "amount"), &tree.ParameterExpression{Position: 1}),
	}

	// SELECT name, coalesce(country, 'unknown') AS country FROM users WHERE id >= 2 LIMIT 2
	users := &tree.QuerySpecification{
		Select: tree.Select{Items: []tree.SelectItem{
			&tree.SingleColumn{Expression: tree.Column("name")},
			&tree.SingleColumn{
				Expression: tree.Call("coalesce", tree.Column("country"), &tree.StringLiteral{Value: "unknown"}),
				Alias:      "country",
			},
		}},
		From:  []tree.Relation{&tree.Table{Name: tree.NewQualifiedName("users")}},
		Where: tree.Compare(tree.GreaterThanOrEqual, tree.Column("id"), &tree.LongLiteral{Value: 2}),
		Limit: &tree.LongLiteral{Value: 2},
	}

	return []query{
		{title: "orders above", body: joined, bulk: [][]any{{minAmount}, {minAmount * 2}}},
		{title: "users from id 2", body: users},
	}
}
