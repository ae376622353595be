// Command graphengine-cli is an interactive REPL over a
// graphengine.Engine, generalizing the teacher's single-graph REPL
// (new/load/unload/list/use/help/exit plus bare DSL lines) to the
// multi-graph GRAPH.QUERY/EXPLAIN/PROFILE/DELETE command surface.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	graphengine "github.com/cyphercore/graphengine"
)

const helpText = `graphengine interactive REPL

Commands:
  new <name>              Create a new empty graph
  load <name> <file>      Load a graph from a persisted JSON file
  save <name> <file>      Save a graph to a JSON file
  unload <name>           Remove a loaded graph
  list                    List all loaded graphs
  use <name>              Set the active graph for queries
  explain <query>         Show the execution plan for a query
  profile <query>         Run a query and show per-operator timings
  help                    Show this help message
  exit / quit             Exit the REPL

Any other input is run as a Cypher-subset query against the active
graph (GRAPH.QUERY).

Examples:
  MATCH (p:Person)-[:KNOWS]->(q:Person) RETURN p.name, q.name
  MATCH (p:Person) WHERE p.age > 30 RETURN p.name ORDER BY p.name
`

func main() {
	configPath := flag.String("config", "", "path to an optional YAML config file")
	flag.Parse()

	e, err := graphengine.New(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading engine: %v\n", err)
		os.Exit(1)
	}

	graphs := make(map[string]bool)
	var active string
	ctx := context.Background()

	scanner := bufio.NewScanner(os.Stdin)
	fmt.Println("graphengine — in-memory property graph query engine")
	fmt.Println(`Type "help" for available commands.`)
	fmt.Println()

	for {
		if active != "" {
			fmt.Printf("[%s]> ", active)
		} else {
			fmt.Print("> ")
		}

		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		parts := strings.Fields(line)
		cmd := strings.ToLower(parts[0])

		switch cmd {
		case "exit", "quit":
			return

		case "help":
			fmt.Print(helpText)

		case "list":
			if len(graphs) == 0 {
				fmt.Println("(no graphs loaded)")
			} else {
				for name := range graphs {
					marker := " "
					if name == active {
						marker = "*"
					}
					fmt.Printf("  %s %s\n", marker, name)
				}
			}

		case "new":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: new <name>")
				continue
			}
			name := parts[1]
			e.CreateGraph(name)
			graphs[name] = true
			if active == "" {
				active = name
			}
			fmt.Printf("created empty graph %q\n", name)

		case "use":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: use <name>")
				continue
			}
			name := parts[1]
			if !graphs[name] {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			active = name
			fmt.Printf("active graph set to %q\n", name)

		case "load":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: load <name> <file>")
				continue
			}
			name, path := parts[1], parts[2]
			if err := e.LoadFile(name, path); err != nil {
				fmt.Fprintf(os.Stderr, "error loading %q: %v\n", path, err)
				continue
			}
			graphs[name] = true
			if active == "" {
				active = name
			}
			g, _ := e.Graph(name)
			fmt.Printf("loaded %q (%d nodes)\n", name, len(g.GetNodes()))

		case "save":
			if len(parts) < 3 {
				fmt.Fprintln(os.Stderr, "usage: save <name> <file>")
				continue
			}
			name, path := parts[1], parts[2]
			if err := e.SaveFile(name, path); err != nil {
				fmt.Fprintf(os.Stderr, "error saving %q: %v\n", name, err)
				continue
			}
			fmt.Printf("saved %q to %s\n", name, path)

		case "unload":
			if len(parts) < 2 {
				fmt.Fprintln(os.Stderr, "usage: unload <name>")
				continue
			}
			name := parts[1]
			if !graphs[name] {
				fmt.Fprintf(os.Stderr, "no graph named %q\n", name)
				continue
			}
			if err := e.DeleteGraph(name); err != nil {
				fmt.Fprintf(os.Stderr, "error unloading %q: %v\n", name, err)
				continue
			}
			delete(graphs, name)
			if active == name {
				active = ""
			}
			fmt.Printf("unloaded %q\n", name)

		case "explain":
			query := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
			if active == "" {
				fmt.Fprintln(os.Stderr, "no active graph — use 'load' or 'use' first")
				continue
			}
			plan, err := e.Explain(ctx, active, query, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "explain error: %v\n", err)
				continue
			}
			fmt.Println(plan)

		case "profile":
			query := strings.TrimSpace(strings.TrimPrefix(line, parts[0]))
			if active == "" {
				fmt.Fprintln(os.Stderr, "no active graph — use 'load' or 'use' first")
				continue
			}
			res, err := e.Profile(ctx, active, query, nil)
			if err != nil {
				fmt.Fprintf(os.Stderr, "profile error: %v\n", err)
				continue
			}
			for _, s := range res.Operators {
				fmt.Printf("  %-24s calls=%-6d duration=%s\n", s.Name, s.Calls, s.Duration)
			}
			fmt.Printf("total: %s\n", res.Elapsed)

		default:
			if active == "" {
				fmt.Fprintln(os.Stderr, "no active graph — use 'new', 'load', or 'use' first")
				continue
			}
			res, err := e.Query(ctx, active, line, nil, graphengine.FormatterVerbose)
			if err != nil {
				fmt.Fprintf(os.Stderr, "query error: %v\n", err)
				continue
			}
			printResult(res)
		}
	}
}

func printResult(res *graphengine.QueryResult) {
	if len(res.Columns) > 0 {
		fmt.Println(strings.Join(res.Columns, " | "))
	}
	for _, row := range res.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprintf("%v", v)
		}
		fmt.Println(strings.Join(cells, " | "))
	}
	fmt.Printf("(%d rows, %s)\n", res.Stats.RowsReturned, res.Stats.Elapsed)
}
