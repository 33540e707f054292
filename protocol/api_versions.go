package protocol

import "github.com/CefBoud/groupfetch/serde"

// APIVersionsResponse represents the response for an ApiVersions
// request at version 0 (no throttle field, classic encoding).
type APIVersionsResponse struct {
	ErrorCode int16
	APIKeys   []APIKey
}

// EncodeAPIVersionsResponse encodes the response body (header excluded).
func EncodeAPIVersionsResponse(response APIVersionsResponse) []byte {
	encoder := serde.NewEncoder()
	encoder.PutInt16(response.ErrorCode)
	encoder.PutArrayLen(len(response.APIKeys))
	for _, k := range response.APIKeys {
		encoder.PutInt16(k.APIKey)
		encoder.PutInt16(k.MinVersion)
		encoder.PutInt16(k.MaxVersion)
	}
	return encoder.Bytes()
}

// DecodeAPIVersionsResponse decodes a v0 response body.
func DecodeAPIVersionsResponse(body []byte) (APIVersionsResponse, error) {
	decoder := serde.NewDecoder(body)
	response := APIVersionsResponse{ErrorCode: decoder.Int16()}
	nbKeys := decoder.ArrayLen()
	for i := int32(0); i < nbKeys && decoder.Err() == nil; i++ {
		response.APIKeys = append(response.APIKeys, APIKey{
			APIKey:     decoder.Int16(),
			MinVersion: decoder.Int16(),
			MaxVersion: decoder.Int16(),
		})
	}
	if err := decoder.Err(); err != nil {
		return APIVersionsResponse{}, &MalformedMessageError{Cause: err}
	}
	return response, nil
}
