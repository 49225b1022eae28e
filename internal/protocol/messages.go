// Package protocol defines the tagged-JSON message families exchanged
// between tracker, seed and leech, and the framing rules around them.
//
// Every sum type here follows the same externally-tagged shape the wire
// protocol specifies: unit variants encode as a bare JSON string
// ("GetPeers"), carrier variants encode as a single-key object
// ({"RegisterAsPeer":"127.0.0.1:2137"}).
package protocol

import (
	"encoding/json"

	"github.com/bits-and-blooms/bitset"
	"github.com/pkg/errors"
)

// ErrCodec is returned when a frame can't be decoded into any known
// variant of the expected message family.
var ErrCodec = errors.New("malformed or unknown message frame")

// RequestKind enumerates RequestToTracker variants.
type RequestKind string

const (
	GetPeersRequest      RequestKind = "GetPeers"
	RegisterAsPeerKind   RequestKind = "RegisterAsPeer"
)

// RequestToTracker is a request sent by a peer to the tracker.
type RequestToTracker struct {
	Kind RequestKind
	Addr string // populated when Kind == RegisterAsPeerKind
}

// NewGetPeersRequest builds a GetPeers request.
func NewGetPeersRequest() RequestToTracker {
	return RequestToTracker{Kind: GetPeersRequest}
}

// NewRegisterAsPeerRequest builds a RegisterAsPeer request carrying addr.
func NewRegisterAsPeerRequest(addr string) RequestToTracker {
	return RequestToTracker{Kind: RegisterAsPeerKind, Addr: addr}
}

func (r RequestToTracker) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case GetPeersRequest:
		return json.Marshal(string(GetPeersRequest))
	case RegisterAsPeerKind:
		return json.Marshal(map[string]string{string(RegisterAsPeerKind): r.Addr})
	default:
		return nil, errors.Wrapf(ErrCodec, "unknown request kind %q", r.Kind)
	}
}

func (r *RequestToTracker) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if RequestKind(bare) != GetPeersRequest {
			return errors.Wrapf(ErrCodec, "unknown bare request %q", bare)
		}
		r.Kind = GetPeersRequest
		return nil
	}

	var carrier map[string]string
	if err := json.Unmarshal(data, &carrier); err != nil {
		return errors.Wrap(ErrCodec, err.Error())
	}

	addr, ok := carrier[string(RegisterAsPeerKind)]
	if !ok {
		return errors.Wrapf(ErrCodec, "unrecognized request object %s", data)
	}

	r.Kind = RegisterAsPeerKind
	r.Addr = addr
	return nil
}

// TrackerResponseKind enumerates TrackerResponse variants.
type TrackerResponseKind string

const (
	PeersResponse                 TrackerResponseKind = "Peers"
	RegisteredSuccessfullyResponse TrackerResponseKind = "RegisteredSuccessfully"
	InvalidRequestResponse         TrackerResponseKind = "InvalidRequest"
)

// TrackerResponse is the tracker's reply to a RequestToTracker.
type TrackerResponse struct {
	Kind  TrackerResponseKind
	Peers []string // populated when Kind == PeersResponse
}

func NewPeersResponse(peers []string) TrackerResponse {
	return TrackerResponse{Kind: PeersResponse, Peers: peers}
}

func NewRegisteredSuccessfullyResponse() TrackerResponse {
	return TrackerResponse{Kind: RegisteredSuccessfullyResponse}
}

func NewInvalidRequestResponse() TrackerResponse {
	return TrackerResponse{Kind: InvalidRequestResponse}
}

func (r TrackerResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case PeersResponse:
		peers := r.Peers
		if peers == nil {
			peers = []string{}
		}
		return json.Marshal(map[string][]string{string(PeersResponse): peers})
	case RegisteredSuccessfullyResponse, InvalidRequestResponse:
		return json.Marshal(string(r.Kind))
	default:
		return nil, errors.Wrapf(ErrCodec, "unknown tracker response kind %q", r.Kind)
	}
}

func (r *TrackerResponse) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		switch TrackerResponseKind(bare) {
		case RegisteredSuccessfullyResponse, InvalidRequestResponse:
			r.Kind = TrackerResponseKind(bare)
			return nil
		default:
			return errors.Wrapf(ErrCodec, "unknown bare tracker response %q", bare)
		}
	}

	var carrier map[string][]string
	if err := json.Unmarshal(data, &carrier); err != nil {
		return errors.Wrap(ErrCodec, err.Error())
	}

	peers, ok := carrier[string(PeersResponse)]
	if !ok {
		return errors.Wrapf(ErrCodec, "unrecognized tracker response object %s", data)
	}

	r.Kind = PeersResponse
	r.Peers = peers
	return nil
}

// LeechRequestKind enumerates LeechRequest variants.
type LeechRequestKind string

const (
	GetAvailabilityKind LeechRequestKind = "GetAvailability"
	GetPacketsKind      LeechRequestKind = "GetPackets"
)

// LeechRequest is a request a leech sends to a seed.
type LeechRequest struct {
	Kind  LeechRequestKind
	Start int // populated when Kind == GetPacketsKind
	Count int // populated when Kind == GetPacketsKind
}

func NewGetAvailabilityRequest() LeechRequest {
	return LeechRequest{Kind: GetAvailabilityKind}
}

func NewGetPacketsRequest(start, count int) LeechRequest {
	return LeechRequest{Kind: GetPacketsKind, Start: start, Count: count}
}

func (r LeechRequest) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case GetAvailabilityKind:
		return json.Marshal(string(GetAvailabilityKind))
	case GetPacketsKind:
		return json.Marshal(map[string][2]int{string(GetPacketsKind): {r.Start, r.Count}})
	default:
		return nil, errors.Wrapf(ErrCodec, "unknown leech request kind %q", r.Kind)
	}
}

func (r *LeechRequest) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if LeechRequestKind(bare) != GetAvailabilityKind {
			return errors.Wrapf(ErrCodec, "unknown bare leech request %q", bare)
		}
		r.Kind = GetAvailabilityKind
		return nil
	}

	var carrier map[string][2]int
	if err := json.Unmarshal(data, &carrier); err != nil {
		return errors.Wrap(ErrCodec, err.Error())
	}

	startCount, ok := carrier[string(GetPacketsKind)]
	if !ok {
		return errors.Wrapf(ErrCodec, "unrecognized leech request object %s", data)
	}

	r.Kind = GetPacketsKind
	r.Start = startCount[0]
	r.Count = startCount[1]
	return nil
}

// SeedResponseKind enumerates the JSON-encoded SeedResponse variants.
// The raw-bytes reply to GetPackets is never represented by this type —
// it is written directly to the connection by the seed loop.
type SeedResponseKind string

const (
	AvailabilityKind       SeedResponseKind = "Availability"
	SeedInvalidRequestKind SeedResponseKind = "InvalidRequest"
)

// SeedResponse is a JSON-framed reply from a seed to a leech.
type SeedResponse struct {
	Kind         SeedResponseKind
	Availability *bitset.BitSet // populated when Kind == AvailabilityKind
}

func NewAvailabilityResponse(bm *bitset.BitSet) SeedResponse {
	return SeedResponse{Kind: AvailabilityKind, Availability: bm}
}

func NewSeedInvalidRequestResponse() SeedResponse {
	return SeedResponse{Kind: SeedInvalidRequestKind}
}

func (r SeedResponse) MarshalJSON() ([]byte, error) {
	switch r.Kind {
	case AvailabilityKind:
		return json.Marshal(map[string]*bitset.BitSet{string(AvailabilityKind): r.Availability})
	case SeedInvalidRequestKind:
		return json.Marshal(string(SeedInvalidRequestKind))
	default:
		return nil, errors.Wrapf(ErrCodec, "unknown seed response kind %q", r.Kind)
	}
}

func (r *SeedResponse) UnmarshalJSON(data []byte) error {
	var bare string
	if err := json.Unmarshal(data, &bare); err == nil {
		if SeedResponseKind(bare) != SeedInvalidRequestKind {
			return errors.Wrapf(ErrCodec, "unknown bare seed response %q", bare)
		}
		r.Kind = SeedInvalidRequestKind
		return nil
	}

	var carrier map[string]*bitset.BitSet
	if err := json.Unmarshal(data, &carrier); err != nil {
		return errors.Wrap(ErrCodec, err.Error())
	}

	bm, ok := carrier[string(AvailabilityKind)]
	if !ok {
		return errors.Wrapf(ErrCodec, "unrecognized seed response object %s", data)
	}

	r.Kind = AvailabilityKind
	r.Availability = bm
	return nil
}
</content>
