package dnsproof

import (
	"context"
	"errors"
	"testing"
	"time"

	mdns "github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haukened/psl-verify/internal/psl/domain"
)

// txtResponse builds a DNS response with the given rcode and one TXT
// record per value.
func txtResponse(rcode int, values ...string) *mdns.Msg {
	msg := new(mdns.Msg)
	msg.Rcode = rcode
	for _, v := range values {
		msg.Answer = append(msg.Answer, &mdns.TXT{
			Hdr: mdns.RR_Header{Name: "_psl.example.com.", Rrtype: mdns.TypeTXT, Class: mdns.ClassINET},
			Txt: []string{v},
		})
	}
	return msg
}

// scriptExchange returns an ExchangeFunc that replays one result per
// server address.
func scriptExchange(results map[string]func() (*mdns.Msg, error)) ExchangeFunc {
	return func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error) {
		resp, err := results[server]()
		return resp, 0, err
	}
}

func TestNew_Defaults(t *testing.T) {
	r := New(Options{})
	assert.NotEmpty(t, r.servers, "expected system or fallback nameservers")
	assert.NotNil(t, r.exchange)
}

func TestLookupTXT_Answered(t *testing.T) {
	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": func() (*mdns.Msg, error) {
				return txtResponse(mdns.RcodeSuccess, "https://github.com/publicsuffix/list/pull/9"), nil
			},
		}),
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofAnswered, answer.Status)
	assert.Equal(t, []string{"https://github.com/publicsuffix/list/pull/9"}, answer.Records)
}

func TestLookupTXT_JoinsCharacterStrings(t *testing.T) {
	resp := new(mdns.Msg)
	resp.Rcode = mdns.RcodeSuccess
	resp.Answer = append(resp.Answer, &mdns.TXT{
		Hdr: mdns.RR_Header{Name: "_psl.example.com.", Rrtype: mdns.TypeTXT, Class: mdns.ClassINET},
		Txt: []string{"https://github.com/publicsuffix", "/list/pull/9"},
	})

	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error) {
			return resp, 0, nil
		},
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"https://github.com/publicsuffix/list/pull/9"}, answer.Records)
}

func TestLookupTXT_NXDomain(t *testing.T) {
	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": func() (*mdns.Msg, error) { return txtResponse(mdns.RcodeNameError), nil },
		}),
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofNXDomain, answer.Status)
}

func TestLookupTXT_NoAnswer(t *testing.T) {
	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": func() (*mdns.Msg, error) { return txtResponse(mdns.RcodeSuccess), nil },
		}),
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofNoAnswer, answer.Status)
}

func TestLookupTXT_AllServersBadRcode(t *testing.T) {
	servfail := func() (*mdns.Msg, error) { return txtResponse(mdns.RcodeServerFailure), nil }
	refused := func() (*mdns.Msg, error) { return txtResponse(mdns.RcodeRefused), nil }

	r := New(Options{
		Servers: []string{"192.0.2.1:53", "192.0.2.2:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": servfail,
			"192.0.2.2:53": refused,
		}),
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofNoNameservers, answer.Status)
}

func TestLookupTXT_AllServersUnreachable(t *testing.T) {
	unreachable := func() (*mdns.Msg, error) { return nil, errors.New("i/o timeout") }

	r := New(Options{
		Servers: []string{"192.0.2.1:53", "192.0.2.2:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": unreachable,
			"192.0.2.2:53": unreachable,
		}),
	})

	_, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "all 2 nameservers failed")
}

func TestLookupTXT_FallsThroughToNextServer(t *testing.T) {
	r := New(Options{
		Servers: []string{"192.0.2.1:53", "192.0.2.2:53"},
		Exchange: scriptExchange(map[string]func() (*mdns.Msg, error){
			"192.0.2.1:53": func() (*mdns.Msg, error) { return nil, errors.New("connection refused") },
			"192.0.2.2:53": func() (*mdns.Msg, error) {
				return txtResponse(mdns.RcodeSuccess, "hello"), nil
			},
		}),
	})

	answer, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofAnswered, answer.Status)
}

func TestLookupTXT_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error) {
			t.Fatal("exchange must not be called after cancellation")
			return nil, 0, nil
		},
	})

	_, err := r.LookupTXT(ctx, "_psl.example.com")
	require.ErrorIs(t, err, context.Canceled)
}

func TestLookupTXT_QueriesFQDNForTXT(t *testing.T) {
	var gotName string
	var gotType uint16

	r := New(Options{
		Servers: []string{"192.0.2.1:53"},
		Exchange: func(ctx context.Context, msg *mdns.Msg, server string) (*mdns.Msg, time.Duration, error) {
			gotName = msg.Question[0].Name
			gotType = msg.Question[0].Qtype
			return txtResponse(mdns.RcodeSuccess, "x"), 0, nil
		},
	})

	_, err := r.LookupTXT(context.Background(), "_psl.example.com")
	require.NoError(t, err)
	assert.Equal(t, "_psl.example.com.", gotName)
	assert.Equal(t, mdns.TypeTXT, gotType)
}

func TestMockResolver(t *testing.T) {
	m := &MockResolver{
		Answers: map[string]domain.ProofAnswer{
			"_psl.known.com": {Status: domain.ProofAnswered, Records: []string{"x"}},
		},
		Errs: map[string]error{"_psl.broken.com": errors.New("boom")},
	}

	answer, err := m.LookupTXT(context.Background(), "_psl.known.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofAnswered, answer.Status)

	answer, err = m.LookupTXT(context.Background(), "_psl.unknown.com")
	require.NoError(t, err)
	assert.Equal(t, domain.ProofNXDomain, answer.Status)

	_, err = m.LookupTXT(context.Background(), "_psl.broken.com")
	require.Error(t, err)

	assert.Equal(t, []string{"_psl.known.com", "_psl.unknown.com", "_psl.broken.com"}, m.Calls)
}
