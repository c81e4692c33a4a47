package protocol

import (
	"encoding/json"
	"testing"
)

// ---------------------------------------------------------------------------
// Test: Parsing a valid join_queue message
// ---------------------------------------------------------------------------

func TestParseClientMessage_JoinQueue(t *testing.T) {
	input := []byte(`{"type":"join_queue","filters":{"lang":"en","topic":"music"}}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeJoinQueue {
		t.Fatalf("expected type %q, got %q", TypeJoinQueue, msgType)
	}

	jm, ok := msg.(JoinQueueMsg)
	if !ok {
		t.Fatalf("expected JoinQueueMsg, got %T", msg)
	}
	if len(jm.Filters) != 2 {
		t.Fatalf("expected 2 filters, got %d", len(jm.Filters))
	}
	if jm.Filters["lang"] != "en" || jm.Filters["topic"] != "music" {
		t.Errorf("unexpected filters: %v", jm.Filters)
	}
}

func TestParseClientMessage_JoinQueueNoFilters(t *testing.T) {
	input := []byte(`{"type":"join_queue"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeJoinQueue {
		t.Fatalf("expected type %q, got %q", TypeJoinQueue, msgType)
	}

	jm, ok := msg.(JoinQueueMsg)
	if !ok {
		t.Fatalf("expected JoinQueueMsg, got %T", msg)
	}
	if len(jm.Filters) != 0 {
		t.Errorf("expected empty filters, got %v", jm.Filters)
	}
}

// ---------------------------------------------------------------------------
// Test: Signal payloads survive the parser byte-for-byte
// ---------------------------------------------------------------------------

func TestParseClientMessage_SignalOpaquePayload(t *testing.T) {
	input := []byte(`{"type":"signal","to":"peer-1","data":{"sdp":"v=0\r\n","kind":"offer","nested":{"a":[1,2,3]}}}`)

	msgType, msg, err := ParseClientMessage(input)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeSignal {
		t.Fatalf("expected type %q, got %q", TypeSignal, msgType)
	}

	sm, ok := msg.(SignalMsg)
	if !ok {
		t.Fatalf("expected SignalMsg, got %T", msg)
	}
	if sm.To != "peer-1" {
		t.Errorf("expected to %q, got %q", "peer-1", sm.To)
	}

	// The payload must be carried verbatim, not re-interpreted.
	var a, b interface{}
	if err := json.Unmarshal(sm.Data, &a); err != nil {
		t.Fatalf("payload is not valid JSON: %v", err)
	}
	if err := json.Unmarshal([]byte(`{"sdp":"v=0\r\n","kind":"offer","nested":{"a":[1,2,3]}}`), &b); err != nil {
		t.Fatalf("reference payload is not valid JSON: %v", err)
	}
	ja, _ := json.Marshal(a)
	jb, _ := json.Marshal(b)
	if string(ja) != string(jb) {
		t.Errorf("payload changed in transit: %s != %s", ja, jb)
	}
}

// ---------------------------------------------------------------------------
// Test: Creating a matched server message
// ---------------------------------------------------------------------------

func TestNewServerMessage_Matched(t *testing.T) {
	payload := MatchedMsg{
		SessionID:    "uuid-456",
		PeerSocketID: "peer-789",
	}

	data, err := NewServerMessage(TypeMatched, payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Decode back and verify structure.
	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}

	if result["type"] != TypeMatched {
		t.Errorf("expected type %q, got %v", TypeMatched, result["type"])
	}
	if result["session_id"] != "uuid-456" {
		t.Errorf("expected session_id %q, got %v", "uuid-456", result["session_id"])
	}
	if result["peer_socket_id"] != "peer-789" {
		t.Errorf("expected peer_socket_id %q, got %v", "peer-789", result["peer_socket_id"])
	}
}

func TestNewServerMessage_KickedReason(t *testing.T) {
	data, err := NewServerMessage(TypeKicked, KickedMsg{Reason: "abuse"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		t.Fatalf("failed to unmarshal result: %v", err)
	}
	if result["type"] != TypeKicked {
		t.Errorf("expected type %q, got %v", TypeKicked, result["type"])
	}
	if result["reason"] != "abuse" {
		t.Errorf("expected reason %q, got %v", "abuse", result["reason"])
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing an unknown message type returns an error
// ---------------------------------------------------------------------------

func TestParseClientMessage_UnknownType(t *testing.T) {
	input := []byte(`{"type":"unknown_type","data":"something"}`)

	msgType, msg, err := ParseClientMessage(input)
	if err == nil {
		t.Fatal("expected an error for unknown message type, got nil")
	}
	if msg != nil {
		t.Errorf("expected nil message for unknown type, got %v", msg)
	}
	if msgType != "unknown_type" {
		t.Errorf("expected returned type %q, got %q", "unknown_type", msgType)
	}
}

// Server-only types must not be accepted from clients.
func TestParseClientMessage_ServerOnlyType(t *testing.T) {
	input := []byte(`{"type":"matched","session_id":"x","peer_socket_id":"y"}`)

	if _, _, err := ParseClientMessage(input); err == nil {
		t.Fatal("expected an error for server-only message type, got nil")
	}
}

// ---------------------------------------------------------------------------
// Test: Round-trip fidelity (marshal -> unmarshal)
// ---------------------------------------------------------------------------

func TestRoundTrip_Report(t *testing.T) {
	original := ReportMsg{
		Type:      TypeReport,
		SessionID: "sess-1",
		Reason:    "harassment",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("failed to marshal: %v", err)
	}

	msgType, msg, err := ParseClientMessage(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msgType != TypeReport {
		t.Fatalf("expected type %q, got %q", TypeReport, msgType)
	}

	decoded, ok := msg.(ReportMsg)
	if !ok {
		t.Fatalf("expected ReportMsg, got %T", msg)
	}
	if decoded.SessionID != original.SessionID {
		t.Errorf("session_id mismatch: expected %q, got %q", original.SessionID, decoded.SessionID)
	}
	if decoded.Reason != original.Reason {
		t.Errorf("reason mismatch: expected %q, got %q", original.Reason, decoded.Reason)
	}
}

// ---------------------------------------------------------------------------
// Test: Envelope UnmarshalJSON edge cases
// ---------------------------------------------------------------------------

func TestEnvelope_MissingType(t *testing.T) {
	input := []byte(`{"data":"no type field"}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err == nil {
		t.Fatal("expected error for missing type field, got nil")
	}
}

func TestEnvelope_InvalidJSON(t *testing.T) {
	input := []byte(`{invalid json}`)
	var env Envelope
	if err := json.Unmarshal(input, &env); err == nil {
		t.Fatal("expected error for invalid JSON, got nil")
	}
}

// ---------------------------------------------------------------------------
// Test: Parsing all client message types succeeds
// ---------------------------------------------------------------------------

func TestParseClientMessage_AllTypes(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		wantType string
	}{
		{"join_queue", `{"type":"join_queue","filters":{"lang":"en"}}`, TypeJoinQueue},
		{"leave_queue", `{"type":"leave_queue"}`, TypeLeaveQueue},
		{"signal", `{"type":"signal","to":"id1","data":{"sdp":"x"}}`, TypeSignal},
		{"relay_msg", `{"type":"relay_msg","to":"id1","text":"hi"}`, TypeRelayMsg},
		{"report", `{"type":"report","session_id":"id1","reason":"spam"}`, TypeReport},
		{"ping", `{"type":"ping"}`, TypePing},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msgType, msg, err := ParseClientMessage([]byte(tc.input))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msgType != tc.wantType {
				t.Errorf("expected type %q, got %q", tc.wantType, msgType)
			}
			if msg == nil {
				t.Error("expected non-nil message")
			}
		})
	}
}
