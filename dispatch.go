// SPDX-License-Identifier: GPL-3.0-or-later

package webhouse

import (
	"context"
	"strings"
)

// Application is a request handler mounted in an endpoint's mount tree
// (§4.6). HandleRequest returns a non-nil [*Response] to answer the
// request outright, or nil to mean "not handled, try next" — valid only
// inside a chaining context such as [SerialRouter]; at the top level a
// nil is materialized as 404 by the wrangler.
type Application interface {
	HandleRequest(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error)
}

// ApplicationFunc adapts a function to the [Application] interface.
type ApplicationFunc func(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error)

var _ Application = ApplicationFunc(nil)

// HandleRequest implements [Application].
func (f ApplicationFunc) HandleRequest(ctx context.Context, req *Request, dispatch Dispatch) (*Response, error) {
	return f(ctx, req, dispatch)
}

// Dispatch pairs a request with the (base, extra) split of its path
// recorded as the request traverses mounts (§3). Base accumulates the
// matched prefix; Extra is the remainder still to be resolved by a
// chaining application. Invariant: BaseString()+ExtraString() equals
// the original request path string.
type Dispatch struct {
	Base  PathKey
	Extra PathKey
}

// BaseString renders the matched base path.
func (d Dispatch) BaseString() string {
	if len(d.Base.Components) == 0 {
		return ""
	}
	return "/" + strings.Join(d.Base.Components, "/")
}

// ExtraString renders the unmatched remainder, preserving the original
// request's trailing-slash (wildcard) flag so that BaseString()+
// ExtraString() reconstructs the original path exactly.
func (d Dispatch) ExtraString() string {
	if len(d.Extra.Components) == 0 {
		if d.Extra.Wildcard {
			return "/"
		}
		return ""
	}
	s := "/" + strings.Join(d.Extra.Components, "/")
	if d.Extra.Wildcard {
		s += "/"
	}
	return s
}

// ParseMountAt parses an `at` mount spec of the form
// `//<host-pattern>/<path…>/` into its host and path pattern halves.
func ParseMountAt(at string) (hostPattern, pathPattern string, err error) {
	if !strings.HasPrefix(at, "//") {
		return "", "", NewError(KindConfiguration, "mount \"at\" must start with \"//\": "+at, nil)
	}
	rest := at[2:]
	idx := strings.Index(rest, "/")
	if idx < 0 {
		return rest, "/", nil
	}
	return rest[:idx], rest[idx:], nil
}

// MountTable is the endpoint's `hostname-then-path` mount table (§4.6
// step 1): a [PathMap] whose keys are synthetic `<host-PathKey>
// concatenated with <path-PathKey>` and whose values are the mounted
// [Application]s.
//
// A mount whose host pattern is the universal wildcard ("*") must match
// every hostname the endpoint serves, regardless of how many labels
// that hostname has. A concatenated host+path key only works when the
// host portion consumes a fixed, known number of components, which a
// bare "*" cannot promise — so universal-host mounts are kept in a
// separate, path-only map (keyed purely on the path pattern) and
// consulted as a fallback once host-specific mounts have been tried.
type MountTable struct {
	byHostLen *PathMap[mountEntry]
	universal *PathMap[mountEntry]
}

type mountEntry struct {
	app     Application
	hostLen int
}

// NewMountTable returns an empty [*MountTable].
func NewMountTable() *MountTable {
	return &MountTable{
		byHostLen: NewPathMap[mountEntry](),
		universal: NewPathMap[mountEntry](),
	}
}

// Add mounts app at the given `at` spec.
func (m *MountTable) Add(at string, app Application) error {
	hostPattern, pathPattern, err := ParseMountAt(at)
	if err != nil {
		return err
	}
	hostKey := ParseHostname(hostPattern)
	pathKey := ParsePath(pathPattern)
	if len(hostKey.Components) == 0 && hostKey.Wildcard {
		return m.universal.Add(pathKey, mountEntry{app: app})
	}
	key := hostKey.Concat(pathKey)
	return m.byHostLen.Add(key, mountEntry{app: app, hostLen: len(hostKey.Components)})
}

// Resolve finds the application mounted for host/path, per §4.6 steps
// 1-2: the longest-prefix matching mount becomes the Dispatch base, the
// remainder becomes extra. Host-specific mounts are tried first, since
// a mount bound to a particular hostname pattern should win over a
// catch-all one; mounts registered under the universal ("*") host
// pattern are the fallback. Fails with [ErrUnknownHost] if nothing
// matches (not even a universal `//*/` mount).
func (m *MountTable) Resolve(host PathKey, path string) (Application, Dispatch, error) {
	pathKey := ParsePath(path)

	if result, ok := m.byHostLen.Find(host.Concat(pathKey)); ok {
		return m.resolved(result, pathKey)
	}
	if result, ok := m.universal.Find(pathKey); ok {
		return m.resolved(result, pathKey)
	}
	return nil, Dispatch{}, NewError(KindUnknownHost, "no mount matches "+host.HostString()+path, nil)
}

// resolved turns a matched [FindResult] and the request's path key into
// the (app, Dispatch) pair Resolve returns, trimming the host-only
// component count (zero for universal-host matches) out of the matched
// depth to recover how much of the path itself was consumed.
func (m *MountTable) resolved(result FindResult[mountEntry], pathKey PathKey) (Application, Dispatch, error) {
	hostLen := result.Value.hostLen
	matchedTotal := len(result.Key.Components)
	pathMatched := matchedTotal - hostLen
	if pathMatched < 0 {
		pathMatched = 0
	}
	if pathMatched > len(pathKey.Components) {
		pathMatched = len(pathKey.Components)
	}

	dispatch := Dispatch{
		Base:  PathKey{Components: append([]string(nil), pathKey.Components[:pathMatched]...)},
		Extra: PathKey{Components: append([]string(nil), pathKey.Components[pathMatched:]...), Wildcard: pathKey.Wildcard},
	}
	return result.Value.app, dispatch, nil
}
