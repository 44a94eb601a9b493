// Package runtime defines the capability-trait surface (C6) a concrete
// JS engine must implement to run smart functions: a synthesized
// Request/Response pair and the HostAPI closure an engine is handed for
// one invocation. No concrete engine lives here — see runtime/fakeengine
// for the deterministic in-memory double the kernel's own tests drive
// against.
package runtime

import (
	"context"
	"net/http"
	"strings"

	"github.com/iancoleman/strcase"

	"jstz.dev/kernel/kv"
	"jstz.dev/kernel/tezos"
)

// Request is the value synthesized for one smart-function invocation,
// whether from an external RunFunction operation or a reentrant
// SmartFunction.call/fetch.
type Request struct {
	URL      string
	Method   string
	Headers  http.Header
	Body     []byte
	Referrer tezos.Address
}

// Response is what a smart function's default export must resolve to.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// HostAPI is the capability closure an engine receives for one
// invocation: everything a smart function may touch is reached only
// through these methods, never through ambient state.
type HostAPI interface {
	// SelfAddress is the address of the smart function currently
	// executing.
	SelfAddress() tezos.Address
	// Transaction is the open transaction this invocation's effects are
	// recorded into; a nested call opens its own child of this one.
	Transaction() *kv.Transaction
	// Depth is this invocation's position in the reentrant call chain,
	// starting at 0 for the externally-triggered call.
	Depth() int
	// WriteDebug appends a line to the rollup debug log, used by the
	// Console API.
	WriteDebug(line string)
	// Call performs a reentrant invocation of target with req. The
	// implementation builds the nested HostAPI, one Depth deeper, and
	// hands it to the engine along with target's code.
	Call(ctx context.Context, target tezos.Address, req Request) (Response, error)
}

// CanonicalizeHeaders rebuilds h with each header name canonicalized
// segment-by-segment (e.g. "content-type" -> "Content-Type"), the way a
// JS engine's own fetch headers normalize casing before they ever reach
// the kernel. Used when building the Request handed to an engine and
// the Response read back from it, so a RunFunctionReceipt always carries
// consistently-cased headers regardless of what the caller supplied.
func CanonicalizeHeaders(h http.Header) http.Header {
	if h == nil {
		return nil
	}
	out := make(http.Header, len(h))
	for k, v := range h {
		parts := strings.Split(k, "-")
		for i, p := range parts {
			parts[i] = strcase.ToCamel(strings.ToLower(p))
		}
		out[strings.Join(parts, "-")] = v
	}
	return out
}

// Engine runs one smart function's code against req under host, and
// returns its Response or the first uncaught failure. Implementations
// are responsible for mapping engine-internal failures (a JS throw, a
// tick-budget exhaustion, a non-Response resolution) to the jstzerr
// kinds documented for C6: JsUncaught, OutOfGas, InvalidResponse.
type Engine interface {
	Invoke(ctx context.Context, code []byte, req Request, host HostAPI) (Response, error)
}
