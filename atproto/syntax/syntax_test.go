package syntax

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHandle(t *testing.T) {
	assert := assert.New(t)

	valid := []string{
		"alice.example.com",
		"alice.example",
		"XYZ.Example.Com",
		"8.cn",
		"name.t--t",
		"a.co",
	}
	for _, raw := range valid {
		_, err := ParseHandle(raw)
		assert.NoError(err, raw)
	}

	invalid := []string{
		"",
		"alice",
		".example.com",
		"alice.example.com.",
		"al ice.example.com",
		"-alice.example.com",
		"alice.example.com/extra",
		"@alice.example.com",
	}
	for _, raw := range invalid {
		_, err := ParseHandle(raw)
		assert.Error(err, raw)
	}
}

func TestHandleNormalize(t *testing.T) {
	assert := assert.New(t)

	h, err := ParseHandle("Alice.Example.COM")
	assert.NoError(err)
	assert.Equal(Handle("alice.example.com"), h.Normalize())
	assert.Equal("com", h.TLD())
	assert.True(h.AllowedTLD())

	bad, err := ParseHandle("something.local")
	assert.NoError(err)
	assert.False(bad.AllowedTLD())

	assert.True(HandleInvalid.IsInvalidHandle())
}

func TestParseDID(t *testing.T) {
	assert := assert.New(t)

	valid := []string{
		"did:plc:abc123",
		"did:web:example.com",
		"did:method:val:two",
		"did:m:v",
	}
	for _, raw := range valid {
		_, err := ParseDID(raw)
		assert.NoError(err, raw)
	}

	invalid := []string{
		"",
		"did:",
		"did:plc:",
		"DID:plc:abc123",
		"did:PLC:abc123",
		"plc:abc123",
		"did:plc:abc 123",
	}
	for _, raw := range invalid {
		_, err := ParseDID(raw)
		assert.Error(err, raw)
	}

	d, err := ParseDID("did:plc:ewvi7nxzyoun6zhxrhs64oiz")
	assert.NoError(err)
	assert.Equal("plc", d.Method())
	assert.Equal("ewvi7nxzyoun6zhxrhs64oiz", d.Identifier())
}

func TestDIDNormalizeEquality(t *testing.T) {
	assert := assert.New(t)

	// resolving twice must compare equal after normalization
	a := DID("did:plc:abc123").Normalize()
	b := DID("did:plc:abc123").Normalize()
	assert.Equal(a, b)
}

func TestParseATURI(t *testing.T) {
	assert := assert.New(t)

	valid := []string{
		"at://did:plc:abc123/app.bsky.feed.post/3jsrpdyf6ss23",
		"at://alice.example.com/com.example.thing/self",
	}
	for _, raw := range valid {
		_, err := ParseATURI(raw)
		assert.NoError(err, raw)
	}

	invalid := []string{
		"",
		"at://did:plc:abc123",
		"at://did:plc:abc123/app.bsky.feed.post",
		"at://did:plc:abc123/app.bsky.feed.post/",
		"at:///app.bsky.feed.post/3jsrpdyf6ss23",
		"at://did:plc:abc123//3jsrpdyf6ss23",
		"https://example.com/thing",
		"at://did:plc:abc123/not-an-nsid/3jsrpdyf6ss23",
	}
	for _, raw := range invalid {
		_, err := ParseATURI(raw)
		assert.Error(err, raw)
	}

	u, err := ParseATURI("at://did:plc:abc123/app.bsky.feed.post/3jsrpdyf6ss23")
	assert.NoError(err)
	assert.Equal(AtIdentifier("did:plc:abc123"), u.Authority())
	assert.Equal(NSID("app.bsky.feed.post"), u.Collection())
	assert.Equal(RecordKey("3jsrpdyf6ss23"), u.RecordKey())
}

func TestParseAtIdentifier(t *testing.T) {
	assert := assert.New(t)

	atid, err := ParseAtIdentifier("did:plc:abc123")
	assert.NoError(err)
	assert.True(atid.IsDID())
	assert.False(atid.IsHandle())
	did, err := atid.AsDID()
	assert.NoError(err)
	assert.Equal(DID("did:plc:abc123"), did)
	_, err = atid.AsHandle()
	assert.Error(err)

	atid, err = ParseAtIdentifier("Alice.Example.com")
	assert.NoError(err)
	assert.True(atid.IsHandle())
	handle, err := atid.AsHandle()
	assert.NoError(err)
	assert.Equal(Handle("alice.example.com"), handle.Normalize())

	_, err = ParseAtIdentifier("did:bogus syntax")
	assert.Error(err)
	_, err = ParseAtIdentifier("no-dots")
	assert.Error(err)
}

func TestParseDatetime(t *testing.T) {
	assert := assert.New(t)

	valid := []string{
		"2024-01-01T00:00:00Z",
		"2023-10-30T22:25:23.417Z",
		"2023-10-30T22:25:23+00:00",
		"1985-04-12T23:20:50.123456789-07:00",
	}
	for _, raw := range valid {
		_, err := ParseDatetime(raw)
		assert.NoError(err, raw)
	}

	invalid := []string{
		"",
		"2024-01-01",
		"2024-01-01T00:00:00",
		"2023-10-30T22:25:23-00:00",
		"tomorrow",
	}
	for _, raw := range invalid {
		_, err := ParseDatetime(raw)
		assert.Error(err, raw)
	}

	tm, err := ParseDatetimeTime("2024-01-01T00:00:00Z")
	assert.NoError(err)
	assert.Equal(2024, tm.Year())
}
