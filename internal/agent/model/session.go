package model

import "encoding/json"

// Exchange is one remembered (question, answer) pair.
type Exchange struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// SessionState is the client-echoed conversation state. It crosses the
// network every turn, so every field must survive a JSON round trip.
type SessionState struct {
	ConversationHistory []Exchange `json:"conversation_history"`
	CurrentVoiceStyle   string     `json:"current_voice_style,omitempty"`
	LastQuestion        string     `json:"last_question,omitempty"`
	LastAnswer          string     `json:"last_answer,omitempty"`
	// RecognizerState is echoed back to the recognizer untouched.
	RecognizerState json.RawMessage `json:"recognizer_state,omitempty"`
}

// Clone returns a deep copy so a turn can mutate its working copy without
// touching the caller's value.
func (s SessionState) Clone() SessionState {
	out := s
	if s.ConversationHistory != nil {
		out.ConversationHistory = make([]Exchange, len(s.ConversationHistory))
		copy(out.ConversationHistory, s.ConversationHistory)
	}
	if s.RecognizerState != nil {
		out.RecognizerState = append(json.RawMessage(nil), s.RecognizerState...)
	}
	return out
}

// StateOrEmpty dereferences a nullable prior state.
func StateOrEmpty(s *SessionState) SessionState {
	if s == nil {
		return SessionState{ConversationHistory: []Exchange{}}
	}
	return s.Clone()
}
