package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/railkit/stationcode/pkg/code"
	"github.com/railkit/stationcode/pkg/lookup"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	defaultLimit = 10
	maxLimit     = 64
	maxPrefix    = 60
)

var errNoIndex = errors.New("no station index loaded")

// Server answers lookup requests over a msgpack stream.
type Server struct {
	mu    sync.RWMutex
	index *lookup.Index
	dec   *msgpack.Decoder
	enc   *msgpack.Encoder
	count int
}

// New creates a server reading from r and writing to w. idx may be nil, in
// which case only encode, decode and health are served.
func New(idx *lookup.Index, r io.Reader, w io.Writer) *Server {
	return &Server{
		index: idx,
		dec:   msgpack.NewDecoder(r),
		enc:   msgpack.NewEncoder(w),
	}
}

// Index returns the index requests are currently answered from.
func (s *Server) Index() *lookup.Index {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.index
}

// SetIndex swaps the index. Requests already being handled finish on the
// old one.
func (s *Server) SetIndex(idx *lookup.Index) {
	s.mu.Lock()
	s.index = idx
	s.mu.Unlock()
}

// Served returns the number of requests handled.
func (s *Server) Served() int {
	return s.count
}

// Start sends the ready message and handles requests until the input ends
// or ctx is cancelled. A malformed value ends the stream with an error,
// since the decoder cannot resynchronize.
func (s *Server) Start(ctx context.Context) error {
	log.Debug("Starting Server.")
	if err := s.send(Response{Status: StatusReady}); err != nil {
		return err
	}

	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		var req Request
		if err := s.dec.Decode(&req); err != nil {
			if errors.Is(err, io.EOF) {
				log.Debug("input closed", "served", s.count)
				return nil
			}
			log.Errorf("Decoding request: %v", err)
			_ = s.send(Response{Status: StatusError, Error: "invalid msgpack request"})
			return fmt.Errorf("failed to decode request: %w", err)
		}

		start := time.Now()
		resp := s.handle(req)
		resp.ID = req.ID
		resp.TimeTaken = time.Since(start).Microseconds()
		s.count++

		if err := s.send(resp); err != nil {
			return err
		}
	}
}

func (s *Server) handle(req Request) Response {
	idx := s.Index()
	var (
		resp Response
		err  error
	)
	switch req.Action {
	case "health":
		resp = Response{Status: StatusOK}
		if idx != nil {
			resp.Count = idx.Len()
		}
	case "encode":
		resp, err = handleEncode(req)
	case "decode":
		resp, err = handleDecode(idx, req)
	case "find":
		resp, err = handleFind(idx, req)
	case "complete":
		resp, err = handleComplete(idx, req)
	case "nearest":
		resp, err = handleNearest(idx, req)
	default:
		err = fmt.Errorf("unknown action: %q", req.Action)
	}

	if err != nil {
		log.Debug("request failed", "id", req.ID, "action", req.Action, "err", err)
		return Response{Status: StatusError, Error: err.Error()}
	}
	resp.Status = StatusOK
	return resp
}

func handleEncode(req Request) (Response, error) {
	c, err := code.Parse(req.Code)
	if err != nil {
		return Response{}, err
	}
	v := int(c.Encode())
	return Response{Code: string(c), Value: &v}, nil
}

func handleDecode(idx *lookup.Index, req Request) (Response, error) {
	if req.Value == nil {
		return Response{}, errors.New("missing 'value' parameter")
	}
	if *req.Value < 0 || *req.Value > int(code.MaxValue()) {
		return Response{}, fmt.Errorf("%w: %d", code.ErrInvalidValue, *req.Value)
	}
	c, err := code.Decode(uint16(*req.Value))
	if err != nil {
		return Response{}, err
	}
	resp := Response{Code: string(c), Value: req.Value}
	if idx != nil {
		if st, ok := idx.ByCode(c); ok {
			resp.Station = toStation(st)
		}
	}
	return resp, nil
}

func handleFind(idx *lookup.Index, req Request) (Response, error) {
	if idx == nil {
		return Response{}, errNoIndex
	}
	if req.Name == "" {
		return Response{}, errors.New("missing 'name' parameter")
	}
	st, score, ok := idx.Find(req.Name)
	if !ok {
		return Response{}, fmt.Errorf("no station matches %q (best score %.2f)", req.Name, score)
	}
	return Response{Station: toStation(st), Score: score}, nil
}

func handleComplete(idx *lookup.Index, req Request) (Response, error) {
	if idx == nil {
		return Response{}, errNoIndex
	}
	if req.Prefix == "" {
		return Response{}, errors.New("missing 'p' parameter")
	}
	if len(req.Prefix) > maxPrefix {
		return Response{}, fmt.Errorf("prefix exceeds maximum length of %d characters", maxPrefix)
	}

	limit := req.Limit
	if limit < 1 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)

	found := idx.Complete(req.Prefix, limit)
	out := make([]Station, 0, len(found))
	for _, st := range found {
		out = append(out, *toStation(st))
	}
	return Response{Stations: out, Count: len(out)}, nil
}

func handleNearest(idx *lookup.Index, req Request) (Response, error) {
	if idx == nil {
		return Response{}, errNoIndex
	}
	if req.Lat == nil || req.Lon == nil {
		return Response{}, errors.New("missing 'lat' or 'lon' parameter")
	}
	st, ok := idx.Nearest(*req.Lat, *req.Lon)
	if !ok {
		return Response{}, errors.New("no station has coordinates")
	}
	return Response{Station: toStation(st)}, nil
}

func (s *Server) send(resp Response) error {
	if err := s.enc.Encode(resp); err != nil {
		log.Errorf("Encoding response: %v", err)
		return fmt.Errorf("failed to write response: %w", err)
	}
	return nil
}

func toStation(st lookup.Station) *Station {
	out := &Station{
		Code:     string(st.Code),
		Value:    int(st.Code.Encode()),
		SourceID: st.SourceID,
		Name:     st.Name,
		Aliases:  st.Aliases,
	}
	if st.HasCoords {
		lat, lon := st.Lat, st.Lon
		out.Lat, out.Lon = &lat, &lon
	}
	return out
}
