package bytecode

import (
	"fmt"
	"strings"
)

// Program is one compiled unit. It is read-only after Compile returns and
// may be shared between concurrent executions.
type Program struct {
	Primary []Instruction
	Aux     []Instruction
}

// At returns the auxiliary instruction behind link.
func (p *Program) At(link Link) (Instruction, bool) {
	if !link.Valid() || int(link) >= len(p.Aux) {
		return Instruction{}, false
	}
	return p.Aux[link], true
}

// appendAux stores in in the pool and returns its link.
func (p *Program) appendAux(in Instruction) Link {
	p.Aux = append(p.Aux, in)
	return Link(len(p.Aux) - 1)
}

// Validate checks that every link of the program refers to a populated
// pool slot and that operand links only point backwards.
func (p *Program) Validate() error {
	check := func(where string, idx int, in Instruction) error {
		for _, l := range []Link{in.Rhs, in.Operand} {
			if !l.Valid() {
				continue
			}
			if int(l) >= len(p.Aux) {
				return fmt.Errorf("%s %d: link @%d out of range", where, idx, l)
			}
			if where == "aux" && int(l) >= idx {
				return fmt.Errorf("%s %d: forward link @%d", where, idx, l)
			}
		}
		if in.Next.Valid() && int(in.Next) >= len(p.Aux) {
			return fmt.Errorf("%s %d: next @%d out of range", where, idx, in.Next)
		}
		return nil
	}
	for i, in := range p.Primary {
		if err := check("primary", i, in); err != nil {
			return err
		}
	}
	for i, in := range p.Aux {
		if err := check("aux", i, in); err != nil {
			return err
		}
	}
	return nil
}

// Disassemble renders the program for debugging
func (p *Program) Disassemble() string {
	var sb strings.Builder
	stmt := 0
	for i, in := range p.Primary {
		if in.Statement != stmt {
			stmt = in.Statement
			fmt.Fprintf(&sb, "; statement %d\n", stmt)
		}
		fmt.Fprintf(&sb, "%04d  %s\n", i, in)
	}
	if len(p.Aux) > 0 {
		sb.WriteString("; aux\n")
		for i, in := range p.Aux {
			fmt.Fprintf(&sb, "@%03d  %s\n", i, in)
		}
	}
	return sb.String()
}
