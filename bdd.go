// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

// And returns the logical 'and' of a sequence of nodes.
func (f *Forest) And(n ...Node) Node {
	switch len(n) {
	case 0:
		return bddone
	case 1:
		return n[0]
	}
	return f.Apply(n[0], f.And(n[1:]...), OPand)
}

// Or returns the logical 'or' of a sequence of nodes.
func (f *Forest) Or(n ...Node) Node {
	switch len(n) {
	case 0:
		return bddzero
	case 1:
		return n[0]
	}
	return f.Apply(n[0], f.Or(n[1:]...), OPor)
}

// Imp returns the logical implication between two nodes.
func (f *Forest) Imp(n1, n2 Node) Node {
	return f.Apply(n1, n2, OPimp)
}

// Equiv returns the logical bi-implication between two nodes.
func (f *Forest) Equiv(n1, n2 Node) Node {
	return f.Apply(n1, n2, OPbiimp)
}

// Equal tests equivalence between two nodes. Since every reduced diagram is
// uniquely represented in the Forest's table, this is simply identity.
func (f *Forest) Equal(n1, n2 Node) bool {
	return n1 == n2
}

// AndExist returns the relational composition of n1 and n2 with respect to
// varset, i.e. the result of (∃varset. n1 & n2).
func (f *Forest) AndExist(varset, n1, n2 Node) Node {
	return f.AppEx(n1, n2, OPand, varset)
}
