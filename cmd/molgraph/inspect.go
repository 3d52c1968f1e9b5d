package main

import (
	"context"
	"fmt"
	"sort"

	"molgraph/internal/data/dataset"
	"molgraph/internal/data/graphstore"
	"molgraph/internal/shared/logger"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newInspectCommand(root *rootOptions) *cobra.Command {
	var entry string
	cmd := &cobra.Command{
		Use:   "inspect FILE",
		Short: "List the entries of an output file, or the tables of one entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := logger.Init(root.level("warn")); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}
			var (
				data pterm.TableData
				err  error
			)
			if entry == "" {
				data, err = entryTable(cmd.Context(), args[0])
			} else {
				data, err = columnTable(cmd.Context(), args[0], entry)
			}
			if err != nil {
				return err
			}
			return pterm.DefaultTable.WithHasHeader().WithData(data).Render()
		},
	}
	cmd.Flags().StringVarP(&entry, "entry", "e", "", "Show the tables of this entry")
	return cmd
}

func entryTable(ctx context.Context, path string) (pterm.TableData, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := graphstore.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	keys, err := s.Keys(ctx)
	if err != nil {
		return nil, err
	}
	data := pterm.TableData{{"Entry", "Kind", "Nodes", "Edges", "Targets"}}
	for _, k := range keys {
		e, err := s.Get(ctx, k)
		if err != nil {
			return nil, err
		}
		targets := make([]string, 0, len(e.Targets))
		for name, v := range e.Targets {
			targets = append(targets, fmt.Sprintf("%s=%g", name, v))
		}
		sort.Strings(targets)
		data = append(data, []string{k, e.Kind, fmt.Sprint(e.NumNodes), fmt.Sprint(e.NumEdges()), fmt.Sprint(targets)})
	}
	return data, nil
}

func columnTable(ctx context.Context, path, name string) (pterm.TableData, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := graphstore.Open(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()

	e, err := s.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	data := pterm.TableData{{"Group", "Table", "Shape"}}
	add := func(group string, cols []graphstore.Column) {
		for _, c := range cols {
			shape := fmt.Sprintf("(%d,)", c.Rows)
			if c.Width > 0 {
				shape = fmt.Sprintf("(%d, %d)", c.Rows, c.Width)
			}
			data = append(data, []string{group, c.Name, shape})
		}
	}
	add(graphstore.GroupNode, e.NodeData)
	add(graphstore.GroupEdge, e.EdgeData)
	data = append(data, []string{"", "edge_index", fmt.Sprintf("(%d, 2)", e.NumEdges())})

	sample, err := dataset.Expand(e, dataset.Options{})
	if err != nil {
		return nil, err
	}
	data = append(data,
		[]string{"directed", "edge_index", fmt.Sprintf("(2, %d)", sample.NumDirectedEdges())},
		[]string{"directed", "x", matrixShape(sample.NodeAttr)},
		[]string{"directed", "edge_attr", matrixShape(sample.EdgeAttr)},
	)
	return data, nil
}

func matrixShape(m [][]float64) string {
	if len(m) == 0 {
		return "(0, 0)"
	}
	return fmt.Sprintf("(%d, %d)", len(m), len(m[0]))
}
