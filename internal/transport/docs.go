// package transport contains implementations to requirements on *message syntaxes*
// defined by http related RFCs.
//
// as of 2022.06, RFCs that were to define HTTP/1.1 (RFC753x) are obsoleted by:
//
//  HTTP Semantics (RFC9110)
//  HTTP Caching (RFC9111) and
//  HTTP/1.1 (RFC9112)
//
// only the HTTP/1.1 client side is implemented. Requests are written through
// an [Encoder]; responses are read through a [Decoder] which yields events so
// the caller decides how a body is consumed.
//
// net/http components are reused on the "semantics" part ([net/http.Header], etc.)

package transport
