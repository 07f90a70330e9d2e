package twilio

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/harunnryd/lyra/pkg/frames"
)

func recvFrame(t *testing.T, tr *Transport) frames.Frame {
	t.Helper()
	select {
	case f := <-tr.Recv():
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("no frame received")
		return nil
	}
}

func TestServeHTTPDemuxesStreamEvents(t *testing.T) {
	tr := New(Config{AllowAnyOrigin: true})
	srv := httptest.NewServer(tr)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer ws.Close()

	write := func(v string) {
		t.Helper()
		if err := ws.WriteMessage(websocket.TextMessage, []byte(v)); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	write(`{"event":"start","start":{"callSid":"CA123","streamSid":"MZ1","from":"+15550001111"}}`)
	f := recvFrame(t, tr)
	sf, ok := f.(frames.SystemFrame)
	if !ok || sf.Name() != frames.SystemCallStart {
		t.Fatalf("expected call_start system frame, got %#v", f)
	}
	meta := sf.Meta()
	if meta[frames.MetaStreamID] != "MZ1" || meta[frames.MetaCallSID] != "CA123" {
		t.Fatalf("start meta = %v", meta)
	}
	if meta[frames.MetaTraceID] == "" {
		t.Fatal("start frame missing trace id")
	}

	payload := base64.StdEncoding.EncodeToString([]byte{0xff, 0x7f})
	write(`{"event":"media","media":{"payload":"` + payload + `"}}`)
	af, ok := recvFrame(t, tr).(frames.AudioFrame)
	if !ok {
		t.Fatal("expected audio frame")
	}
	if got := af.RawPayload(); len(got) != 2 || got[0] != 0xff || got[1] != 0x7f {
		t.Fatalf("decoded payload = %v", got)
	}
	if af.Meta()[frames.MetaEncoding] != "mulaw" {
		t.Fatalf("encoding = %q", af.Meta()[frames.MetaEncoding])
	}

	// Malformed JSON and undecodable payloads are skipped, the stream
	// stays up.
	write(`{not json`)
	write(`{"event":"media","media":{"payload":"!!!not-base64!!!"}}`)
	write(`{"event":"somethingelse"}`)

	write(`{"event":"mark","mark":{"name":"reply-1"}}`)
	cf, ok := recvFrame(t, tr).(frames.ControlFrame)
	if !ok || cf.Code() != frames.ControlMark {
		t.Fatal("expected mark control frame")
	}
	if cf.Meta()[frames.MetaMarkName] != "reply-1" {
		t.Fatalf("mark name = %q", cf.Meta()[frames.MetaMarkName])
	}

	write(`{"event":"stop"}`)
	ef, ok := recvFrame(t, tr).(frames.SystemFrame)
	if !ok || ef.Name() != frames.SystemCallEnd {
		t.Fatal("expected call_end system frame")
	}
	if ef.Meta()[frames.MetaCallEndReason] != "completed" {
		t.Fatalf("call_end_reason = %q", ef.Meta()[frames.MetaCallEndReason])
	}
}

func TestServeHTTPEmitsCallEndOnAbruptDisconnect(t *testing.T) {
	tr := New(Config{AllowAnyOrigin: true})
	srv := httptest.NewServer(tr)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	ws, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	if err := ws.WriteMessage(websocket.TextMessage,
		[]byte(`{"event":"start","start":{"callSid":"CA9","streamSid":"MZ9"}}`)); err != nil {
		t.Fatalf("write: %v", err)
	}
	recvFrame(t, tr)

	ws.Close()
	ef, ok := recvFrame(t, tr).(frames.SystemFrame)
	if !ok || ef.Name() != frames.SystemCallEnd {
		t.Fatal("expected call_end system frame")
	}
	if ef.Meta()[frames.MetaCallEndReason] != "failed" {
		t.Fatalf("call_end_reason = %q", ef.Meta()[frames.MetaCallEndReason])
	}
}

func TestHandleVoiceSignatureValidation(t *testing.T) {
	cfg := Config{AuthToken: "token", PublicURL: "https://example.com", VoicePath: "/voice"}
	tr := New(cfg)

	form := url.Values{}
	form.Set("CallSid", "CA123")
	form.Set("From", "+123")
	body := form.Encode()

	req := httptest.NewRequest(http.MethodPost, "https://example.com/voice", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	params := map[string]string{"CallSid": "CA123", "From": "+123"}
	sig := computeSignature(cfg.AuthToken, tr.requestURL(req), params)
	req.Header.Set("X-Twilio-Signature", sig)

	w := httptest.NewRecorder()
	tr.handleVoice(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `<Stream url="wss://example.com/ws"/>`) {
		t.Fatalf("unexpected TwiML: %s", w.Body.String())
	}

	reqInvalid := httptest.NewRequest(http.MethodPost, "https://example.com/voice", strings.NewReader(body))
	reqInvalid.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	reqInvalid.Header.Set("X-Twilio-Signature", "invalid")
	wInvalid := httptest.NewRecorder()
	tr.handleVoice(wInvalid, reqInvalid)
	if wInvalid.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", wInvalid.Code)
	}
}

func TestHandleVoiceEscapesGreeting(t *testing.T) {
	tr := New(Config{PublicURL: "https://example.com", VoiceGreeting: `Hi <there> & "you"`})

	req := httptest.NewRequest(http.MethodPost, "https://example.com/voice", nil)
	w := httptest.NewRecorder()
	tr.handleVoice(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	out := w.Body.String()
	if strings.Contains(out, "<there>") {
		t.Fatalf("greeting not escaped: %s", out)
	}
	if !strings.Contains(out, "Hi &lt;there&gt; &amp; &quot;you&quot;") {
		t.Fatalf("unexpected escaped greeting: %s", out)
	}
}

func TestSendWrapsAudioAsOutboundMedia(t *testing.T) {
	tr := New(Config{})
	c := &conn{sendCh: make(chan []byte, 1)}
	tr.mu.Lock()
	tr.conns["MZ1"] = c
	tr.mu.Unlock()

	af := frames.NewAudioFrame("MZ1", time.Now().UnixNano(), []byte{0x01, 0x02}, 8000, 1, nil)
	if err := tr.Send(af); err != nil {
		t.Fatalf("send error: %v", err)
	}

	select {
	case msg := <-c.sendCh:
		var payload map[string]any
		if err := json.Unmarshal(msg, &payload); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if evt, _ := payload["event"].(string); evt != "media" {
			t.Fatalf("event = %q, want media", evt)
		}
		if sid, _ := payload["streamSid"].(string); sid != "MZ1" {
			t.Fatalf("streamSid = %q", sid)
		}
		media, _ := payload["media"].(map[string]any)
		if track, _ := media["track"].(string); track != "outbound" {
			t.Fatalf("track = %q, want outbound", track)
		}
		raw, err := base64.StdEncoding.DecodeString(media["payload"].(string))
		if err != nil || len(raw) != 2 || raw[0] != 0x01 {
			t.Fatalf("payload mismatch: %v %v", raw, err)
		}
	default:
		t.Fatal("expected media message to be enqueued")
	}
}

func TestSendFailsForUnknownStream(t *testing.T) {
	tr := New(Config{})
	af := frames.NewAudioFrame("MZmissing", time.Now().UnixNano(), []byte{0x01}, 8000, 1, nil)
	if err := tr.Send(af); err == nil {
		t.Fatal("expected error for unknown stream")
	}
}

func TestCloseStreamReleasesConnection(t *testing.T) {
	tr := New(Config{})
	c := &conn{sendCh: make(chan []byte, 1)}
	tr.mu.Lock()
	tr.conns["MZ1"] = c
	tr.callSIDs["MZ1"] = "CA123"
	tr.mu.Unlock()

	if err := tr.CloseStream("MZ1"); err != nil {
		t.Fatalf("CloseStream: %v", err)
	}
	if !c.closed.Load() {
		t.Fatal("connection not marked closed")
	}

	af := frames.NewAudioFrame("MZ1", time.Now().UnixNano(), []byte{0x01}, 8000, 1, nil)
	if err := tr.Send(af); err == nil {
		t.Fatal("expected error after stream closed")
	}
}

func TestCheckOriginAllowlist(t *testing.T) {
	tr := New(Config{AllowedOrigins: []string{"https://allowed.example.com"}})

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Origin", "https://allowed.example.com")
	if !tr.checkOrigin(req) {
		t.Fatal("allowed origin rejected")
	}

	req.Header.Set("Origin", "https://evil.example.com")
	if tr.checkOrigin(req) {
		t.Fatal("unknown origin accepted")
	}

	any := New(Config{AllowAnyOrigin: true})
	if !any.checkOrigin(req) {
		t.Fatal("allow_any_origin did not accept")
	}
}

func TestNormalizePublicURL(t *testing.T) {
	cases := map[string]string{
		"https://example.com":  "example.com",
		"http://example.com":   "example.com",
		"example.com/":         "example.com",
		"example.ngrok.app///": "example.ngrok.app",
	}
	for in, want := range cases {
		if got := normalizePublicURL(in); got != want {
			t.Fatalf("normalizePublicURL(%q) = %q, want %q", in, got, want)
		}
	}
}

func computeSignature(authToken, url string, params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	base := url
	for _, k := range keys {
		base += k + params[k]
	}
	mac := hmac.New(sha1.New, []byte(authToken))
	_, _ = mac.Write([]byte(base))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
