package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/MrDragar/LDPR-reports-generator/internal/app"
	"github.com/MrDragar/LDPR-reports-generator/internal/config"
	"github.com/MrDragar/LDPR-reports-generator/internal/form"
	"github.com/MrDragar/LDPR-reports-generator/internal/logging"
	"github.com/MrDragar/LDPR-reports-generator/internal/mutate"
	"github.com/MrDragar/LDPR-reports-generator/internal/submit"
)

const help = `commands:
  set <section> <field> <value...>       set a field (other_info takes no field)
  item <list> <index> <field> <value...> set a field of a list element
  link <list> <index> <sub> <value...>   set one link of a list element
  add <list> | add <section> <field>     append a list element or a blank row
  rm <list> <index> | rm <section> <field> <index> [sub]
  op <json>                              apply a raw edit operation
  show | errors | notices | undo | reset
  import <file.json> | export json|xlsx [dir] | submit | quit`

// #region main
func main() {
	configPath := flag.String("config", "", "optional YAML config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	logger := logging.New(cfg.LogLevel, "text")
	logger.SetOutput(os.Stderr)
	if cfg.LogLevel == "info" {
		logger.SetLevel(logrus.WarnLevel)
	}

	ctx := context.Background()
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "wire app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	fmt.Println("LDPR report console ready.")
	fmt.Printf("  Draft: %s | Service: %s\n", cfg.DraftBackend, cfg.ReportServiceURL)
	fmt.Println("Type 'help' for commands.")

	scanner := bufio.NewScanner(os.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 4<<20)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "quit" || line == "exit" {
			break
		}
		if err := run(ctx, a.Controller, line); err != nil {
			fmt.Printf("error: %v\n", err)
		}
		drainNotices(a.Controller)
	}
}
// #endregion main

// #region commands
func run(ctx context.Context, c *form.Controller, line string) error {
	fields := strings.Fields(line)
	switch fields[0] {
	case "help":
		fmt.Println(help)
		return nil
	case "show":
		return printJSON(c.View().Report)
	case "errors":
		v := c.View()
		if v.Errors.Empty() {
			fmt.Println("no errors")
		}
		for _, p := range v.Errors.Paths() {
			fmt.Printf("  %-40s %s\n", p, v.Errors[p])
		}
		return nil
	case "notices":
		return nil
	case "undo":
		if _, ok := c.Undo(ctx); !ok {
			fmt.Println("nothing to undo")
		}
		return nil
	case "reset":
		c.Reset(ctx)
		return nil
	case "import":
		if len(fields) != 2 {
			return errors.New("usage: import <file.json>")
		}
		data, err := os.ReadFile(fields[1])
		if err != nil {
			return err
		}
		_, err = c.Import(ctx, data)
		return err
	case "export":
		return export(c, fields[1:])
	case "submit":
		res, err := c.Submit(ctx)
		var fail *submit.Failure
		if errors.As(err, &fail) && !fail.Errors.Empty() {
			for _, p := range fail.Errors.Paths() {
				fmt.Printf("  %-40s %s\n", p, fail.Errors[p])
			}
			return nil
		}
		if err != nil {
			return nil
		}
		fmt.Printf("saved %s (%d bytes)\n", res.Path, res.Bytes)
		return nil
	}

	op, err := parseOp(line)
	if err != nil {
		return err
	}
	v, err := c.Apply(ctx, op)
	if err != nil {
		return err
	}
	fmt.Printf("ok (%d errors)\n", len(v.Errors))
	return nil
}

func export(c *form.Controller, args []string) error {
	if len(args) == 0 {
		return errors.New("usage: export json|xlsx [dir]")
	}
	var (
		f   form.File
		err error
	)
	switch args[0] {
	case "json":
		f, err = c.ExportJSON()
	case "xlsx":
		f, err = c.ExportXLSX()
	default:
		return fmt.Errorf("unknown export format %q", args[0])
	}
	if err != nil {
		return err
	}
	dir := "."
	if len(args) > 1 {
		dir = args[1]
	}
	path := filepath.Join(dir, f.Name)
	if err := os.WriteFile(path, f.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	fmt.Printf("wrote %s\n", path)
	return nil
}

func drainNotices(c *form.Controller) {
	for _, n := range c.Notices().List() {
		fmt.Printf("[%s] %s\n", n.Kind, n.Message)
		c.Notices().Dismiss(n.ID)
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
// #endregion commands

// #region parse
// parseOp turns an edit command into an operation.
func parseOp(line string) (mutate.Op, error) {
	fields := strings.Fields(line)
	args := fields[1:]
	rest := func(from int) string {
		if len(args) <= from {
			return ""
		}
		return strings.Join(args[from:], " ")
	}

	switch fields[0] {
	case "op":
		var op mutate.Op
		if err := json.Unmarshal([]byte(strings.TrimSpace(strings.TrimPrefix(line, "op"))), &op); err != nil {
			return op, fmt.Errorf("parse op: %w", err)
		}
		return op, nil
	case "set":
		if len(args) < 1 {
			return mutate.Op{}, errors.New("usage: set <section> <field> <value...>")
		}
		if args[0] == string(mutate.OtherInfo) {
			return mutate.Op{Kind: mutate.OpSetField, Section: args[0], Value: rest(1)}, nil
		}
		if len(args) < 2 {
			return mutate.Op{}, errors.New("usage: set <section> <field> <value...>")
		}
		return mutate.Op{Kind: mutate.OpSetField, Section: args[0], Field: args[1], Value: rest(2)}, nil
	case "item":
		if len(args) < 3 {
			return mutate.Op{}, errors.New("usage: item <list> <index> <field> <value...>")
		}
		i, err := index(args[1])
		if err != nil {
			return mutate.Op{}, err
		}
		return mutate.Op{Kind: mutate.OpSetListItemField, List: args[0], Index: i, Field: args[2], Value: rest(3)}, nil
	case "link":
		if len(args) < 3 {
			return mutate.Op{}, errors.New("usage: link <list> <index> <sub> <value...>")
		}
		i, err := index(args[1])
		if err != nil {
			return mutate.Op{}, err
		}
		sub, err := index(args[2])
		if err != nil {
			return mutate.Op{}, err
		}
		return mutate.Op{Kind: mutate.OpSetListItemLink, List: args[0], Index: i, Sub: sub, Value: rest(3)}, nil
	case "add":
		switch len(args) {
		case 1:
			return mutate.Op{Kind: mutate.OpAppendListItem, List: args[0]}, nil
		case 2:
			return mutate.Op{Kind: mutate.OpAppendStringListItem, Section: args[0], Field: args[1]}, nil
		}
		return mutate.Op{}, errors.New("usage: add <list> | add <section> <field>")
	case "rm":
		switch len(args) {
		case 2:
			i, err := index(args[1])
			if err != nil {
				return mutate.Op{}, err
			}
			return mutate.Op{Kind: mutate.OpRemoveListItem, List: args[0], Index: i}, nil
		case 3, 4:
			i, err := index(args[2])
			if err != nil {
				return mutate.Op{}, err
			}
			op := mutate.Op{Kind: mutate.OpRemoveStringListItem, Section: args[0], Field: args[1], Index: i}
			if len(args) == 4 {
				if op.Sub, err = index(args[3]); err != nil {
					return mutate.Op{}, err
				}
			}
			return op, nil
		}
		return mutate.Op{}, errors.New("usage: rm <list> <index> | rm <section> <field> <index> [sub]")
	}
	return mutate.Op{}, fmt.Errorf("unknown command %q (try 'help')", fields[0])
}

func index(s string) (*int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil, fmt.Errorf("bad index %q", s)
	}
	return mutate.At(n), nil
}
// #endregion parse
