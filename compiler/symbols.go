package compiler

import "github.com/vwarlock/vbc/vcpu"

// VarType distinguishes scalar integer variables from 1/2/3 dimensional
// arrays (spec.md §3).
type VarType uint8

const (
	Scalar VarType = iota
	Array1
	Array2
	Array3
)

// IntVar is an integer variable or array, scalar ones living in zero page
// and arrays living in free RAM obtained from the allocator (spec.md §3).
type IntVar struct {
	Address     uint16
	Name        string
	OutputLabel string // padded to vcpu.LabelTruncSize at output time
	Data        int16  // last-known constant value, used for folding
	Init        int16
	VarType     VarType
	IntSize     uint8 // 2 for a word; reserved for future byte variables
	ArrSizes    [3]uint16
	ArrInits    []int16
	ArrAddrs    [][]uint16 // flattened per dimension at allocation time
	ArrLUT      []uint16
	CodeLine    uint32
}

// IsArray reports whether v is any of Array1/Array2/Array3.
func (v *IntVar) IsArray() bool { return v.VarType != Scalar }

// StrVarType distinguishes plain strings from string arrays.
type StrVarType uint8

const (
	Str StrVarType = iota
	StrArray
)

// StrVar is a string variable or string array. Strings are length-prefixed
// and null terminated in RAM and allocated len+2 bytes; constant strings
// with identical content are deduplicated (spec.md §3, §8 invariant 3).
type StrVar struct {
	Address     uint16
	Size        uint8 // current length
	MaxSize     uint8
	Text        string
	Name        string
	OutputLabel string
	VarType     StrVarType
	Constant    bool
	ArrInits    []string
	ArrAddrs    []uint16
}

// ConstType distinguishes integer from string constants.
type ConstType uint8

const (
	ConstInt ConstType = iota
	ConstStr
)

// Const is a named compile-time constant (spec.md §3).
type Const struct {
	Name         string
	InternalName string
	Address      uint16
	IntData      int16
	StrData      string
	ConstType    ConstType
	Size         uint8
}

// Label is a user-declared or internal (compiler-synthesized) label
// (spec.md §3).
type Label struct {
	Address       uint16
	Name          string
	Output        string // padded to vcpu.LabelTruncSize
	CodeLineIndex int
	Numeric       bool
	PageJump      bool
	Gosub         bool
}

// DiscardedLabel is an internal label that was queued via
// setNextInternalLabel but displaced by a second call before any emission
// consumed it (spec.md §3, §4.2.3). It is keyed by the address it would
// have landed on and resolved against surviving labels at output time.
type DiscardedLabel struct {
	Label   Label
	Address uint16
}

// UserFn is a `DEF FN` textual macro (spec.md §4.1.2).
type UserFn struct {
	Name   string
	Params []string
	Body   string
}

// DefDataKind enumerates the out-of-line data blob kinds the compiler can
// allocate addresses and LUTs for. Sprite/font/image *emission* is an
// external collaborator (spec.md §1); only address/LUT bookkeeping lives
// here.
type DefDataKind uint8

const (
	DefBytes DefDataKind = iota
	DefWords
	DefImage
	DefSprite
	DefFont
)

// DefData is an out-of-line data blob with an allocated address and
// optional LUT (spec.md §3).
type DefData struct {
	Name    string
	Kind    DefDataKind
	Address uint16
	Size    uint16
	LUT     []uint16
}

// SymbolTable holds every named thing the compiler can resolve, plus the
// counters and stacks that make up the compilation's global state
// (spec.md §3 "Global state").
type SymbolTable struct {
	IntVars   map[string]*IntVar
	StrVars   map[string]*StrVar
	Consts    map[string]*Const
	UserFns   map[string]*UserFn
	DataBlobs map[string]*DefData

	Labels          map[string]*Label
	InternalLabels  map[string]*Label
	DiscardedLabels []*DiscardedLabel

	// order preserves declaration order for the output formatter, which
	// must emit sections in a stable, deterministic order (spec.md §4.6).
	intVarOrder  []string
	strVarOrder  []string
	constOrder   []string
	labelOrder   []string
	internalOrder []string
	dataOrder    []string

	uniqueID uint32
}

// NewSymbolTable returns an empty symbol table, as after clearCompiler.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{
		IntVars:   make(map[string]*IntVar),
		StrVars:   make(map[string]*StrVar),
		Consts:    make(map[string]*Const),
		UserFns:   make(map[string]*UserFn),
		DataBlobs: make(map[string]*DefData),

		Labels:         make(map[string]*Label),
		InternalLabels: make(map[string]*Label),
	}
}

// NextUniqueID returns a monotonically increasing id used to name synthetic
// branch labels (spec.md §4.2.3).
func (s *SymbolTable) NextUniqueID() uint32 {
	id := s.uniqueID
	s.uniqueID++
	return id
}

// AddIntVar registers a new scalar or array integer variable. It does not
// allocate an address; callers use the zero-page or free-RAM allocator
// first and set Address before calling AddIntVar, matching the teacher's
// create-then-register ordering in asm.parser.makeLabelRef.
func (s *SymbolTable) AddIntVar(v *IntVar) {
	if _, exists := s.IntVars[v.Name]; !exists {
		s.intVarOrder = append(s.intVarOrder, v.Name)
	}
	s.IntVars[v.Name] = v
}

// AddStrVar registers a new string variable or string array.
func (s *SymbolTable) AddStrVar(v *StrVar) {
	if _, exists := s.StrVars[v.Name]; !exists {
		s.strVarOrder = append(s.strVarOrder, v.Name)
	}
	s.StrVars[v.Name] = v
}

// FindConstString returns an existing constant string record with the same
// text, if any, implementing the deduplication invariant (spec.md §8
// invariant 3).
func (s *SymbolTable) FindConstString(text string) (*StrVar, bool) {
	for _, name := range s.strVarOrder {
		v := s.StrVars[name]
		if v.Constant && v.Text == text {
			return v, true
		}
	}
	return nil, false
}

// AddConst registers a named constant.
func (s *SymbolTable) AddConst(c *Const) {
	if _, exists := s.Consts[c.Name]; !exists {
		s.constOrder = append(s.constOrder, c.Name)
	}
	s.Consts[c.Name] = c
}

// AddLabel registers a user label.
func (s *SymbolTable) AddLabel(l *Label) {
	if _, exists := s.Labels[l.Name]; !exists {
		s.labelOrder = append(s.labelOrder, l.Name)
	}
	s.Labels[l.Name] = l
}

// AddInternalLabel registers a compiler-synthesized label.
func (s *SymbolTable) AddInternalLabel(l *Label) {
	if _, exists := s.InternalLabels[l.Name]; !exists {
		s.internalOrder = append(s.internalOrder, l.Name)
	}
	s.InternalLabels[l.Name] = l
}

// AddDataBlob registers an out-of-line data object.
func (s *SymbolTable) AddDataBlob(d *DefData) {
	if _, exists := s.DataBlobs[d.Name]; !exists {
		s.dataOrder = append(s.dataOrder, d.Name)
	}
	s.DataBlobs[d.Name] = d
}

// IntVarOrder returns variable names in declaration order.
func (s *SymbolTable) IntVarOrder() []string { return s.intVarOrder }

// StrVarOrder returns string variable names in declaration order.
func (s *SymbolTable) StrVarOrder() []string { return s.strVarOrder }

// ConstOrder returns constant names in declaration order.
func (s *SymbolTable) ConstOrder() []string { return s.constOrder }

// LabelOrder returns user label names in declaration order.
func (s *SymbolTable) LabelOrder() []string { return s.labelOrder }

// InternalLabelOrder returns internal label names in declaration order.
func (s *SymbolTable) InternalLabelOrder() []string { return s.internalOrder }

// DataOrder returns data blob names in declaration order.
func (s *SymbolTable) DataOrder() []string { return s.dataOrder }

// padLabel pads name to vcpu.LabelTruncSize with trailing spaces, or
// truncates it and places a trailing space at the last column, matching
// the original compiler's column-alignment behavior referenced by
// spec.md §6 (LABEL_TRUNC_SIZE).
func padLabel(name string) string {
	if len(name) >= vcpu.LabelTruncSize {
		b := []byte(name[:vcpu.LabelTruncSize])
		b[vcpu.LabelTruncSize-1] = ' '
		return string(b)
	}
	out := make([]byte, vcpu.LabelTruncSize)
	copy(out, name)
	for i := len(name); i < vcpu.LabelTruncSize; i++ {
		out[i] = ' '
	}
	return string(out)
}
