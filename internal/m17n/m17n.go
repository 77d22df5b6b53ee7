// Package m17n defines the boundary between the engine and a multilingual
// input-method library such as libm17n.
//
// The library is reached only through the primitives declared here: a
// Library opens a Method for a (language, name) pair, a Method creates
// Contexts, and a Context filters and looks up key symbols. While doing
// so a Context invokes the Callback registered on its Method with one of
// the command symbols below, synchronously and on the calling goroutine.
//
// Implementations live in subpackages: table (pure Go, keymap documents)
// and native (cgo binding, built with the m17n tag).
package m17n

import "errors"

// Symbol is a library-facing name: a key ("a", "Up", "C-A"), a command
// ("input-preedit-draw") or a language/method tag.
type Symbol string

// Nil is the empty symbol. Translation yields Nil when a key event has no
// representation.
const Nil Symbol = ""

// Callback commands emitted by a Context.
const (
	PreeditStart          Symbol = "input-preedit-start"
	PreeditDraw           Symbol = "input-preedit-draw"
	PreeditDone           Symbol = "input-preedit-done"
	StatusStart           Symbol = "input-status-start"
	StatusDraw            Symbol = "input-status-draw"
	StatusDone            Symbol = "input-status-done"
	CandidatesStart       Symbol = "input-candidates-start"
	CandidatesDraw        Symbol = "input-candidates-draw"
	CandidatesDone        Symbol = "input-candidates-done"
	SetSpot               Symbol = "input-set-spot"
	Toggle                Symbol = "input-toggle"
	Reset                 Symbol = "input-reset"
	GetSurroundingText    Symbol = "input-get-surrounding-text"
	DeleteSurroundingText Symbol = "input-delete-surrounding-text"
)

// Synthetic keys fed through Filter/Lookup for focus changes.
const (
	FocusIn  Symbol = "input-focus-in"
	FocusOut Symbol = "input-focus-out"
)

// Commands lists every callback command in registration order. Reset is
// absent: the library's default reset handling is kept.
var Commands = []Symbol{
	PreeditStart, PreeditDraw, PreeditDone,
	StatusStart, StatusDraw, StatusDone,
	CandidatesStart, CandidatesDraw, CandidatesDone,
	SetSpot, Toggle,
	GetSurroundingText, DeleteSurroundingText,
}

// Errors returned by Library implementations.
var (
	ErrNoMethod = errors.New("m17n: input method not found")
	ErrContext  = errors.New("m17n: cannot create input context")
)

// Callback receives a command from a Context. It runs inside the Filter,
// Lookup, Reset or CreateContext call that triggered it.
type Callback func(ctx Context, command Symbol)

// Context is one input context. It is not safe for concurrent use.
type Context interface {
	// ID is unique among live contexts of the process. It is valid from
	// the first callback the context emits, before CreateContext returns.
	ID() uint64

	// Filter offers key to the method. It reports true when the key was
	// consumed internally.
	Filter(key Symbol) bool

	// Lookup appends the text produced by key to produced. It reports
	// true when the method completed handling of key.
	Lookup(key Symbol, produced *Text) bool

	// Reset returns the context to its initial state.
	Reset()

	Preedit() Text
	CursorPos() int
	Status() Text

	// Candidates returns the current candidate groups, or nil.
	Candidates() CandidateList
	// CandidateIndex is the global index of the selected candidate.
	CandidateIndex() int
	// CandidateShow reports whether the candidates should be displayed.
	CandidateShow() bool

	// Destroy releases the context. It must be called exactly once.
	Destroy()
}

// Method is an opened input method shared by every context created from it.
type Method interface {
	// SetCallback binds cb to command for all contexts of this method.
	SetCallback(command Symbol, cb Callback)
	CreateContext() (Context, error)
	Close()
}

// MethodInfo describes one input method known to a Library.
type MethodInfo struct {
	Language    Symbol
	Name        Symbol
	Title       string
	Description string
	Icon        string
}

// Library is the entry point of an input-method implementation.
type Library interface {
	// OpenMethod returns ErrNoMethod when (language, name) is unknown.
	OpenMethod(language, name Symbol) (Method, error)
	ListMethods() ([]MethodInfo, error)
	Close() error
}
