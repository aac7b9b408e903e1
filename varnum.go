// Copyright (c) 2021 Silvano DAL ZILIO
//
// MIT License

package sylvan

// SetVarnum sets the number of variables in the Forest. It may be called
// more than once, but only to increase the number of variables, the same
// restriction as rudd's SetVarnum.
func (f *Forest) SetVarnum(num int) error {
	if num < 1 || uint32(num) > _MAXVAR {
		f.seterror("SetVarnum: bad number of variables (%d)", num)
		return f.lastErr
	}
	if uint32(num) < f.varnum {
		f.seterror("SetVarnum: cannot decrease varnum from %d to %d", f.varnum, num)
		return f.lastErr
	}
	if uint32(num) == f.varnum {
		return nil
	}

	oldset := f.varset
	f.varset = make([][2]Node, num)
	copy(f.varset, oldset)

	for v := f.varnum; v < uint32(num); v++ {
		v1, err := f.makenode(v, bddzero, bddone)
		if err != nil {
			f.seterror("SetVarnum: cannot allocate variable %d: %s", v, err)
			return f.lastErr
		}
		f.external.Ref(uint64(v1))
		v0, err := f.makenode(v, bddone, bddzero)
		if err != nil {
			f.seterror("SetVarnum: cannot allocate variable %d: %s", v, err)
			return f.lastErr
		}
		f.external.Ref(uint64(v0))
		f.varset[v] = [2]Node{v0, v1}
	}
	f.varnum = uint32(num)
	f.quantset = make([]uint32, f.varnum)
	f.quantsetID = 0
	f.levels.Grow(num)
	f.interact.Grow(num)
	f.mrc.Grow(num)

	f.log.Debug().Uint32("varnum", f.varnum).Msg("set varnum")
	return nil
}

// Varnum returns the current number of variables.
func (f *Forest) Varnum() int { return int(f.varnum) }

// ExtVarnum extends the current varnum by num extra variables.
func (f *Forest) ExtVarnum(num int) error {
	if num < 0 {
		f.seterror("ExtVarnum: bad extension size (%d)", num)
		return f.lastErr
	}
	return f.SetVarnum(int(f.varnum) + num)
}
