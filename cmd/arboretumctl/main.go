// Command arboretumctl is a readline REPL over a small Point store: every
// inserted point lands in both the sequential scanner (ground truth) and
// a B-tree keyed by OID, so range/kNN/ring queries and point lookups can
// be exercised side by side. Modeled directly on the teacher's
// cmd/client REPL (history file, meta commands, chzyer/readline).
package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/tuannm99/arboretum/internal"
	"github.com/tuannm99/arboretum/internal/btree"
	"github.com/tuannm99/arboretum/internal/bufferpool"
	"github.com/tuannm99/arboretum/internal/contract"
	"github.com/tuannm99/arboretum/internal/contract/fixtures"
	"github.com/tuannm99/arboretum/internal/node"
	"github.com/tuannm99/arboretum/internal/query"
	"github.com/tuannm99/arboretum/internal/result"
	"github.com/tuannm99/arboretum/internal/seqstore"
	"github.com/tuannm99/arboretum/internal/storage"
)

func newPoint() contract.Object { return &fixtures.Point{} }

// history is the REPL's own append-only command log, independent of
// readline's in-memory history — grounded on the teacher's cmd/client
// History type.
type history struct {
	path  string
	lines []string
}

func newHistory(path string) *history { return &history{path: path} }

func (h *history) Load(max int) error {
	if h.path == "" {
		return nil
	}
	f, err := os.Open(h.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	defer func() { _ = f.Close() }()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		s := strings.TrimSpace(sc.Text())
		if s == "" {
			continue
		}
		h.lines = append(h.lines, s)
		if max > 0 && len(h.lines) > max {
			h.lines = h.lines[len(h.lines)-max:]
		}
	}
	return sc.Err()
}

func (h *history) Append(line string) error {
	line = strings.TrimSpace(line)
	if line == "" || h.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(h.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(h.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()
	if _, err := fmt.Fprintln(f, line); err != nil {
		return err
	}
	h.lines = append(h.lines, line)
	return nil
}

func (h *history) Print(last int) {
	if last <= 0 || last > len(h.lines) {
		last = len(h.lines)
	}
	start := len(h.lines) - last
	if start < 0 {
		start = 0
	}
	for i := start; i < len(h.lines); i++ {
		fmt.Printf("%5d  %s\n", i+1, h.lines[i])
	}
}

func isMetaCommand(line string) bool {
	return strings.HasPrefix(line, "\\") || line == "quit" || line == "exit"
}

const helpText = `meta commands:
  \q | quit | exit          quit
  \history                  print command history
  \help                     show this help

data commands:
  insert <oid> <x> [y ...]  insert a point into the scanner and the OID-keyed B-tree
  get <oid>                 B-tree point lookup by OID
  del <oid>                 B-tree delete by OID
  range <r> <x> [y ...]     scanner range query
  ring <in> <out> <x> [y ...]   scanner ring query
  knn <k> <x> [y ...]       scanner k-nearest-neighbor query (tiebreaker on)`

func defaultHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return ".arboretum_history"
	}
	return filepath.Join(home, ".arboretum_history")
}

func parsePoint(oidField string, coordFields []string) (*fixtures.Point, error) {
	oid, err := strconv.ParseUint(oidField, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("bad oid %q: %w", oidField, err)
	}
	coords := make([]float64, len(coordFields))
	for i, f := range coordFields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", f, err)
		}
		coords[i] = v
	}
	return fixtures.NewPoint(oid, coords...), nil
}

func parseSample(coordFields []string) (*fixtures.Point, error) {
	coords := make([]float64, len(coordFields))
	for i, f := range coordFields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, fmt.Errorf("bad coordinate %q: %w", f, err)
		}
		coords[i] = v
	}
	return fixtures.NewPoint(0, coords...), nil
}

func main() {
	var (
		configPath = flag.String("config", "", "path to a YAML config file (optional)")
		histPath   = flag.String("history", defaultHistoryPath(), "history file path")
		histMax    = flag.Int("history-max", 2000, "max history lines loaded into memory")
	)
	flag.Parse()

	cfg := internal.Defaults()
	if *configPath != "" {
		loaded, err := internal.LoadConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	scanPool, err := bufferpool.Open(storage.LocalFileSet{Dir: cfg.Storage.Dir, Base: cfg.Storage.Base + ".seq"}, cfg.Storage.PageSize, cfg.BufferPool.Capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open scanner store: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = scanPool.Close() }()

	idxPool, err := bufferpool.Open(storage.LocalFileSet{Dir: cfg.Storage.Dir, Base: cfg.Storage.Base + ".idx"}, cfg.Storage.PageSize, cfg.BufferPool.Capacity)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open index: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = idxPool.Close() }()

	scanner, err := seqstore.Open(scanPool, newPoint)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attach scanner: %v\n", err)
		os.Exit(1)
	}

	index, err := btree.Open(idxPool, node.Int64Codec(), newPoint, false)
	if err != nil {
		fmt.Fprintf(os.Stderr, "attach index: %v\n", err)
		os.Exit(1)
	}

	metric := contract.Metric{Distance: fixtures.Euclidean}

	h := newHistory(*histPath)
	_ = h.Load(*histMax)

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.CLI.Prompt,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "readline: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = rl.Close() }()

	for _, line := range h.lines {
		_ = rl.SaveHistory(line)
	}

	fmt.Printf("arboretum store at %s/%s (page size %d)\n", cfg.Storage.Dir, cfg.Storage.Base, cfg.Storage.PageSize)
	fmt.Println("type \\help for help")

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			fmt.Println("^C")
			continue
		}
		if err != nil {
			fmt.Println()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if isMetaCommand(line) {
			switch line {
			case "\\q", "quit", "exit":
				return
			case "\\help":
				fmt.Println(helpText)
			case "\\history":
				h.Print(50)
			default:
				fmt.Printf("unknown command: %s\n", line)
			}
			continue
		}

		_ = h.Append(line)
		_ = rl.SaveHistory(line)

		if err := dispatch(line, scanner, index, metric); err != nil {
			fmt.Printf("error: %v\n", err)
		}
	}
}

func dispatch(line string, scanner *seqstore.Store, index *btree.Tree[int64], metric contract.Metric) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, args := fields[0], fields[1:]

	switch cmd {
	case "insert":
		if len(args) < 2 {
			return fmt.Errorf("usage: insert <oid> <x> [y ...]")
		}
		p, err := parsePoint(args[0], args[1:])
		if err != nil {
			return err
		}
		if err := scanner.Insert(p); err != nil {
			return err
		}
		if err := index.Insert(int64(p.OID), p); err != nil {
			return err
		}
		fmt.Printf("inserted oid=%d\n", p.OID)
		return nil

	case "get":
		if len(args) != 1 {
			return fmt.Errorf("usage: get <oid>")
		}
		oid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		objs, err := index.Search(oid)
		if err != nil {
			return err
		}
		if len(objs) == 0 {
			fmt.Println("(not found)")
			return nil
		}
		for _, o := range objs {
			p := o.(*fixtures.Point)
			fmt.Printf("oid=%d coords=%v\n", p.OID, p.Coords)
		}
		return nil

	case "del":
		if len(args) != 1 {
			return fmt.Errorf("usage: del <oid>")
		}
		oid, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return err
		}
		removed, err := index.Delete(oid, uint64(oid))
		if err != nil {
			return err
		}
		if removed {
			fmt.Println("deleted")
		} else {
			fmt.Println("(not found)")
		}
		return nil

	case "range":
		if len(args) < 2 {
			return fmt.Errorf("usage: range <r> <x> [y ...]")
		}
		r, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		sample, err := parseSample(args[1:])
		if err != nil {
			return err
		}
		res, err := query.Range(scanner, metric, sample, r)
		if err != nil {
			return err
		}
		printEntries(res.Entries())
		return nil

	case "ring":
		if len(args) < 3 {
			return fmt.Errorf("usage: ring <in> <out> <x> [y ...]")
		}
		in, err := strconv.ParseFloat(args[0], 64)
		if err != nil {
			return err
		}
		out, err := strconv.ParseFloat(args[1], 64)
		if err != nil {
			return err
		}
		sample, err := parseSample(args[2:])
		if err != nil {
			return err
		}
		res, err := query.Ring(scanner, metric, sample, in, out)
		if err != nil {
			return err
		}
		printEntries(res.Entries())
		return nil

	case "knn":
		if len(args) < 2 {
			return fmt.Errorf("usage: knn <k> <x> [y ...]")
		}
		k, err := strconv.Atoi(args[0])
		if err != nil {
			return err
		}
		sample, err := parseSample(args[1:])
		if err != nil {
			return err
		}
		res, err := query.KNN(scanner, metric, sample, k, false, true)
		if err != nil {
			return err
		}
		printEntries(res.Entries())
		return nil

	default:
		return fmt.Errorf("unknown command: %s (try \\help)", cmd)
	}
}

func printEntries(entries []result.Entry) {
	if len(entries) == 0 {
		fmt.Println("(empty)")
		return
	}
	for _, e := range entries {
		p := e.Object.(*fixtures.Point)
		fmt.Printf("oid=%-4d dist=%.4f coords=%v\n", p.OID, e.Key, p.Coords)
	}
}
