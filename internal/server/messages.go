/*
Package server implements msgpack IPC over stdin/stdout for station lookups.

Clients write a stream of msgpack maps and read one response per request, in
order. The first value the server writes is a ready message:

	{"status": "ready"}

Every request carries an id, echoed back, and an action:

	{"id": "1", "action": "encode", "code": "RAT"}
	{"id": "2", "action": "decode", "value": 19473}
	{"id": "3", "action": "find", "name": "roma tiburtna"}
	{"id": "4", "action": "complete", "p": "ROMA", "l": 5}
	{"id": "5", "action": "nearest", "lat": 41.9, "lon": 12.5}
	{"id": "6", "action": "health"}

Responses carry "status" ("ok" or "error"), the payload fields for the
action, and "t", the handling time in microseconds:

	{"id": "1", "status": "ok", "code": "RAT", "value": 19473, "t": 3}
	{"id": "3", "status": "ok", "station": {...}, "score": 0.93, "t": 41}

encode and decode need no station index; the other lookups fail with an
error response when the server was started without one. Requests are
handled one at a time.
*/
package server

// Request is one client message.
type Request struct {
	ID     string   `msgpack:"id"`
	Action string   `msgpack:"action"`
	Code   string   `msgpack:"code,omitempty"`
	Value  *int     `msgpack:"value,omitempty"`
	Name   string   `msgpack:"name,omitempty"`
	Prefix string   `msgpack:"p,omitempty"`
	Limit  int      `msgpack:"l,omitempty"`
	Lat    *float64 `msgpack:"lat,omitempty"`
	Lon    *float64 `msgpack:"lon,omitempty"`
}

// Station is a station as sent to clients.
type Station struct {
	Code     string   `msgpack:"code"`
	Value    int      `msgpack:"value"`
	SourceID string   `msgpack:"source_id"`
	Name     string   `msgpack:"name"`
	Aliases  []string `msgpack:"aliases,omitempty"`
	Lat      *float64 `msgpack:"lat,omitempty"`
	Lon      *float64 `msgpack:"lon,omitempty"`
}

// Response answers one Request.
type Response struct {
	ID        string    `msgpack:"id,omitempty"`
	Status    string    `msgpack:"status"`
	Error     string    `msgpack:"error,omitempty"`
	Code      string    `msgpack:"code,omitempty"`
	Value     *int      `msgpack:"value,omitempty"`
	Station   *Station  `msgpack:"station,omitempty"`
	Stations  []Station `msgpack:"stations,omitempty"`
	Score     float64   `msgpack:"score,omitempty"`
	Count     int       `msgpack:"count,omitempty"`
	TimeTaken int64     `msgpack:"t"`
}

const (
	StatusReady = "ready"
	StatusOK    = "ok"
	StatusError = "error"
)
