// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan_test

import (
	"fmt"
	"log"

	"github.com/dalzilio/sylvan"
)

// This example shows the basic usage of the package: create a Forest,
// compute some expressions and output the result.
func Example_basic() {
	// Create a new Forest with 6 variables, 10 000 nodes and a cache size of
	// 3 000 (initially).
	f, _ := sylvan.New(6, sylvan.Nodesize(10000), sylvan.Cachesize(3000))
	defer f.Close()
	// n1 is a set comprising the three variables {x2, x3, x5}. It can also be
	// interpreted as the Boolean expression: x2 & x3 & x5
	n1 := f.Makeset([]int{2, 3, 5})
	// n2 == x1 | !x3 | x4
	n2 := f.Or(f.Ithvar(1), f.NIthvar(3), f.Ithvar(4))
	// n3 == ∃ x2,x3,x5 . (n2 & x3)
	n3 := f.AndExist(n1, n2, f.Ithvar(3))
	// You can print the result or export the forest in Graphviz's DOT format
	log.Print("\n" + f.Stats())
	fmt.Printf("Number of sat. assignments is %s\n", f.Satcount(n3))
	// Output:
	// Number of sat. assignments is 48
}

// An example of a callback handler, used in a call to Allsat, that counts
// the number of possible assignments (so don't cares are not counted twice).
func Example_allsat() {
	f, _ := sylvan.New(5)
	defer f.Close()
	// n == ∃ x2,x3 . (x1 | !x3 | x4) & x3
	n := f.AndExist(f.Makeset([]int{2, 3}),
		f.Or(f.Ithvar(1), f.NIthvar(3), f.Ithvar(4)),
		f.Ithvar(3))
	acc := new(int)
	f.Allsat(func(varset []int) error {
		*acc++
		return nil
	}, n)
	fmt.Printf("Number of sat. assignments (without don't care) is %d", *acc)
	// Output:
	// Number of sat. assignments (without don't care) is 2
}

// An example of a callback handler, used in a call to Allnodes, that counts
// the number of active nodes in the whole forest.
func Example_allnodes() {
	f, _ := sylvan.New(5)
	defer f.Close()
	n := f.AndExist(f.Makeset([]int{2, 3}),
		f.Or(f.Ithvar(1), f.NIthvar(3), f.Ithvar(4)),
		f.Ithvar(3))
	acc := new(int)
	count := func(id, level, low, high uint64) error {
		*acc++
		return nil
	}
	f.Allnodes(count)
	fmt.Printf("Number of active nodes in forest is %d\n", *acc)
	*acc = 0
	f.Allnodes(count, n)
	fmt.Printf("Number of active nodes in node is %d", *acc)
	// Output:
	// Number of active nodes in forest is 14
	// Number of active nodes in node is 2
}
