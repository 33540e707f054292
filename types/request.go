package types

// Request is a decoded request header plus the undecoded body bytes.
// OffsetFetch v0-5 and ApiVersions v0 all use header v1, which has no
// tagged fields.
type Request struct {
	Length            int32
	RequestAPIKey     int16
	RequestAPIVersion int16
	CorrelationID     int32
	ClientID          string
	ConnectionAddress string
	Body              []byte
}
