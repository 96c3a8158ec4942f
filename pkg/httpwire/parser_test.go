package httpwire_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omalloc/relay/pkg/httpwire"
)

func retrieve(t *testing.T, p *httpwire.Parser, f httpwire.Field) string {
	t.Helper()
	v, err := p.Retrieve(f)
	require.NoError(t, err)
	return v
}

func TestParseAbsoluteFormRequestLine(t *testing.T) {
	p := httpwire.NewParser()

	state := p.ParseLine("GET http://example.com:8080/a/b?q=1 HTTP/1.0\r\n")
	require.Equal(t, httpwire.StateRequest, state)

	assert.Equal(t, "GET", retrieve(t, p, httpwire.FieldMethod))
	assert.Equal(t, "http://example.com:8080/a/b?q=1", retrieve(t, p, httpwire.FieldURI))
	assert.Equal(t, "/a/b?q=1", retrieve(t, p, httpwire.FieldPath))
	assert.Equal(t, "example.com", retrieve(t, p, httpwire.FieldHost))
	assert.Equal(t, "8080", retrieve(t, p, httpwire.FieldPort))
}

func TestPortDefaultsTo80(t *testing.T) {
	p := httpwire.NewParser()

	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://example.com/ HTTP/1.1\r\n"))
	assert.Equal(t, "80", retrieve(t, p, httpwire.FieldPort))
}

func TestAbsoluteFormWithoutPath(t *testing.T) {
	p := httpwire.NewParser()

	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://example.com HTTP/1.0\r\n"))
	assert.Equal(t, "/", retrieve(t, p, httpwire.FieldPath))
	assert.Equal(t, "example.com", retrieve(t, p, httpwire.FieldHost))
}

func TestOriginFormTakesAuthorityFromHostHeader(t *testing.T) {
	p := httpwire.NewParser()

	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET /index.html HTTP/1.1\r\n"))

	// host unknown until the Host header shows up
	_, err := p.Retrieve(httpwire.FieldHost)
	assert.ErrorIs(t, err, httpwire.ErrFieldNotFound)

	require.Equal(t, httpwire.StateHeader, p.ParseLine("Host: example.org:8888\r\n"))
	assert.Equal(t, "example.org", retrieve(t, p, httpwire.FieldHost))
	assert.Equal(t, "8888", retrieve(t, p, httpwire.FieldPort))
	assert.Equal(t, "/index.html", retrieve(t, p, httpwire.FieldPath))
}

func TestMalformedRequestLine(t *testing.T) {
	for _, line := range []string{
		"GARBAGE\r\n",
		"GET\r\n",
		"GET /x\r\n",
		"GET /x STILL/NOT/HTTP\r\n",
		"GET ftp://example.com/x HTTP/1.0\r\n",
		"GET http:// HTTP/1.0\r\n",
	} {
		p := httpwire.NewParser()
		assert.Equal(t, httpwire.StateError, p.ParseLine(line), "line %q", line)
	}
}

func TestMalformedHeaderLine(t *testing.T) {
	p := httpwire.NewParser()
	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://h/ HTTP/1.0\r\n"))

	assert.Equal(t, httpwire.StateError, p.ParseLine("not a header\r\n"))
}

func TestHeaderCursorYieldsEachHeaderOnce(t *testing.T) {
	p := httpwire.NewParser()
	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://h/ HTTP/1.0\r\n"))
	require.Equal(t, httpwire.StateHeader, p.ParseLine("Accept: */*\r\n"))
	require.Equal(t, httpwire.StateHeader, p.ParseLine("Cookie: a=1\r\n"))

	h1, ok := p.NextHeader()
	require.True(t, ok)
	assert.Equal(t, httpwire.Header{Name: "Accept", Value: "*/*"}, h1)

	h2, ok := p.NextHeader()
	require.True(t, ok)
	assert.Equal(t, httpwire.Header{Name: "Cookie", Value: "a=1"}, h2)

	_, ok = p.NextHeader()
	assert.False(t, ok)

	// a later line resumes the cursor where it left off
	require.Equal(t, httpwire.StateHeader, p.ParseLine("Accept-Language: en\r\n"))
	h3, ok := p.NextHeader()
	require.True(t, ok)
	assert.Equal(t, "Accept-Language", h3.Name)
	_, ok = p.NextHeader()
	assert.False(t, ok)
}

func TestBlankLineTerminatorIsBenign(t *testing.T) {
	p := httpwire.NewParser()
	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://h/ HTTP/1.0\r\n"))

	assert.Equal(t, httpwire.StateOther, p.ParseLine("\r\n"))
	// anything after the terminator stays benign
	assert.Equal(t, httpwire.StateOther, p.ParseLine("X-Late: 1\r\n"))
}

func TestContinuationLineFoldsIntoPreviousHeader(t *testing.T) {
	p := httpwire.NewParser()
	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://h/ HTTP/1.0\r\n"))
	require.Equal(t, httpwire.StateHeader, p.ParseLine("X-Long: first\r\n"))
	require.Equal(t, httpwire.StateOther, p.ParseLine("  second\r\n"))

	h, ok := p.NextHeader()
	require.True(t, ok)
	assert.Equal(t, "first second", h.Value)
}

func TestRetrieveBeforeRequestLineFails(t *testing.T) {
	p := httpwire.NewParser()

	for _, f := range []httpwire.Field{
		httpwire.FieldMethod,
		httpwire.FieldURI,
		httpwire.FieldPath,
		httpwire.FieldHost,
		httpwire.FieldPort,
	} {
		_, err := p.Retrieve(f)
		assert.ErrorIs(t, err, httpwire.ErrFieldNotFound)
	}
}

func TestRequestLineHostHeaderDoesNotOverrideURI(t *testing.T) {
	p := httpwire.NewParser()
	require.Equal(t, httpwire.StateRequest, p.ParseLine("GET http://real.example:9000/x HTTP/1.0\r\n"))
	require.Equal(t, httpwire.StateHeader, p.ParseLine("Host: other.example:1\r\n"))

	assert.Equal(t, "real.example", retrieve(t, p, httpwire.FieldHost))
	assert.Equal(t, "9000", retrieve(t, p, httpwire.FieldPort))
}
