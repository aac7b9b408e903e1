// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dalzilio/sylvan/internal/cache"
)

// Stats returns a textual summary of the node table and operation caches.
func (f *Forest) Stats() string {
	st := f.stats()
	res := fmt.Sprintf("Varnum:     %d\n", st.Varnum)
	res += fmt.Sprintf("Table:      %d (access %d, hit %d, miss %d)\n", st.Table.Size, st.Table.Access, st.Table.Hit, st.Table.Miss)
	res += fmt.Sprintf("GC cycles:  %d\n", len(f.gcc.History))
	res += "==============\n"
	res += cacheStats("Apply", st.Apply)
	res += cacheStats("Ite", st.Ite)
	res += cacheStats("Quant", st.Quant)
	res += cacheStats("Appex", st.Appex)
	res += cacheStats("Replace", st.Replace)
	return res
}

func cacheStats(name string, s cache.Stats) string {
	total := s.Hit + s.Miss
	ratio := 0.0
	if total > 0 {
		ratio = (float64(s.Hit) * 100) / float64(total)
	}
	return fmt.Sprintf("%-8s size %d, hit %d (%.1f%%), miss %d\n", name, s.Size, s.Hit, ratio, s.Miss)
}

// Print outputs a textual representation of the nodes reachable from n to
// stdout, or of the whole forest if n is omitted.
func (f *Forest) Print(n ...Node) {
	f.print(os.Stdout, n...)
}

func (f *Forest) print(w io.Writer, n ...Node) {
	if f.Errored() {
		fmt.Fprintf(w, "Error: %s\n", f.Error())
		return
	}
	if len(n) == 1 {
		if n[0] == bddzero {
			fmt.Fprintln(w, "False")
			return
		}
		if n[0] == bddone {
			fmt.Fprintln(w, "True")
			return
		}
	}
	type entry struct{ id, level, low, high uint64 }
	var nodes []entry
	err := f.Allnodes(func(id, level, low, high uint64) error {
		i := sort.Search(len(nodes), func(i int) bool { return nodes[i].id >= id })
		nodes = append(nodes, entry{})
		copy(nodes[i+1:], nodes[i:])
		nodes[i] = entry{id, level, low, high}
		return nil
	}, n...)
	if err != nil {
		fmt.Fprintln(w, err.Error())
		return
	}
	for _, e := range nodes {
		if e.id > 1 {
			fmt.Fprintf(w, "%d\t[%d\t] ? \t%d\t : %d\n", e.id, e.level, e.high, e.low)
		}
	}
}

// PrintDot writes a DOT-format graph of the nodes reachable from n (or the
// whole forest if n is omitted) to filename ("-" for stdout).
func (f *Forest) PrintDot(filename string, n ...Node) error {
	var out *os.File
	var err error
	if filename == "-" {
		out = os.Stdout
	} else {
		out, err = os.Create(filename)
		if err != nil {
			return err
		}
		defer out.Close()
	}
	w := bufio.NewWriter(out)
	defer w.Flush()
	if f.Errored() {
		fmt.Fprintf(w, "Error: %s\n", f.Error())
		return fmt.Errorf("%s", f.Error())
	}
	fmt.Fprintln(w, "digraph G {")
	fmt.Fprintln(w, "1 [shape=box, label=\"1\", style=filled, shape=box, height=0.3, width=0.3];")
	_ = f.Allnodes(func(id, level, low, high uint64) error {
		if id > 1 {
			fmt.Fprintf(w, "%d %s\n", id, dotlabel(id, level))
			if low != 0 {
				fmt.Fprintf(w, "%d -> %d [style=dotted];\n", id, low)
			}
			if high != 0 {
				fmt.Fprintf(w, "%d -> %d [style=filled];\n", id, high)
			}
		}
		return nil
	}, n...)
	fmt.Fprintln(w, "}")
	return nil
}

func dotlabel(a, b uint64) string {
	return fmt.Sprintf(`[label=<
	<FONT POINT-SIZE="20">%d</FONT>
	<FONT POINT-SIZE="10">[%d]</FONT>
>];`, b, a)
}
