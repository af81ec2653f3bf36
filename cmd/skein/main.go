// Package main provides the Skein CLI entry point.
package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/skeindb/skein/pkg/config"
	"github.com/skeindb/skein/pkg/cypher"
	"github.com/skeindb/skein/pkg/storage"
)

var (
	version = "0.1.0"
	commit  = "dev"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "skein",
		Short: "Skein - property-graph query engine over a key-value store",
		Long: `Skein is a property-graph query engine shipped as an extension of a
key-value store, with a Cypher front-end: parsing, canonicalizing
rewrites and semantic validation ahead of planning.`,
	}
	rootCmd.PersistentFlags().String("config", "", "Path to YAML config file")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("Skein v%s (%s)\n", version, commit)
		},
	})

	checkCmd := &cobra.Command{
		Use:   "check [query...]",
		Short: "Parse and validate Cypher queries",
		Long: `Parse and validate each query through the full front-end pipeline.
Queries are read from the arguments, or from stdin one per line when no
arguments are given. The first error of each query is reported; parse
errors include their position and surrounding context.`,
		RunE: runCheck,
	}
	rootCmd.AddCommand(checkCmd)

	astCmd := &cobra.Command{
		Use:   "ast [query]",
		Short: "Print the canonicalized clause structure of a query",
		Args:  cobra.ExactArgs(1),
		RunE:  runAST,
	}
	rootCmd.AddCommand(astCmd)

	schemaCmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the stored graph schema",
		RunE:  runSchema,
	}
	schemaCmd.Flags().String("data-dir", "./data", "Data directory")
	rootCmd.AddCommand(schemaCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	return config.Load(path)
}

func runCheck(cmd *cobra.Command, args []string) error {
	if _, err := loadConfig(cmd); err != nil {
		return err
	}
	procs := cypher.NewProcedureRegistry()

	queries := args
	if len(queries) == 0 {
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				queries = append(queries, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return err
		}
	}

	failures := 0
	for _, query := range queries {
		compiled, err := cypher.CompileQuery(query, procs)
		if err != nil {
			failures++
			fmt.Printf("FAIL  %s\n      %v\n", query, err)
			continue
		}
		fmt.Printf("OK    %s\n", query)
		compiled.AST.Free()
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d queries failed validation", failures, len(queries))
	}
	return nil
}

func runAST(cmd *cobra.Command, args []string) error {
	procs := cypher.NewProcedureRegistry()
	compiled, err := cypher.CompileQuery(args[0], procs)
	if err != nil {
		return err
	}
	defer compiled.AST.Free()

	query, ok := compiled.AST.Root.(*cypher.Query)
	if !ok {
		fmt.Println(compiled.AST.Root.Kind())
		return nil
	}
	for i, clause := range query.Clauses {
		fmt.Printf("%2d  %-10s %s\n", i, clause.Kind(), compiled.AST.ToString(clause))
	}
	if len(compiled.Params) > 0 {
		fmt.Printf("params: %v\n", compiled.Params)
	}
	return nil
}

func runSchema(cmd *cobra.Command, args []string) error {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	store, err := storage.Open(storage.Options{DataDir: dataDir})
	if err != nil {
		return err
	}
	defer store.Close()

	fmt.Println("labels:")
	for _, label := range store.Labels() {
		fmt.Printf("  %s\n", label)
	}
	fmt.Println("relationship types:")
	for _, rt := range store.RelationshipTypes() {
		fmt.Printf("  %s\n", rt)
	}
	fmt.Println("property keys:")
	for _, key := range store.PropertyKeys() {
		fmt.Printf("  %s\n", key)
	}
	fmt.Println("indexes:")
	for _, idx := range store.Indexes() {
		fmt.Printf("  :%s(%s)\n", idx.Label, strings.Join(idx.Properties, ", "))
	}
	return nil
}
