package shared

// MessageType definiert den Typ einer Nachricht für die WebSocket-Kommunikation.
type MessageType int

const (
	MessageTypeText    MessageType = 0 // Freitext (Hinweise, Begrüßung)
	MessageTypeRun     MessageType = 1 // Client -> Server: Quelltext oder gespeichertes Skript ausführen
	MessageTypeSave    MessageType = 2 // Client -> Server: Skript unter einem Namen speichern
	MessageTypeList    MessageType = 3 // Client -> Server: gespeicherte Skripte auflisten
	MessageTypeResult  MessageType = 4 // Server -> Client: Ergebnis einer Ausführung
	MessageTypeError   MessageType = 5 // Server -> Client: strukturierter Fehler
	MessageTypeSession MessageType = 6 // Server -> Client: Session-ID Übermittlung
	MessageTypeSaved   MessageType = 7 // Server -> Client: Bestätigung für SAVE
	MessageTypeScripts MessageType = 8 // Server -> Client: Antwort auf LIST
)

// Message repräsentiert eine Nachricht, die über WebSocket gesendet oder empfangen wird.
type Message struct {
	Type    MessageType `json:"type"`
	Content string      `json:"content,omitempty"`

	// Für RUN und SAVE
	Name   string `json:"name,omitempty"`
	Source string `json:"source,omitempty"`

	// Für RESULT
	ExitCode   int    `json:"exitCode"`
	Value      string `json:"value,omitempty"`
	Diagnostic string `json:"diagnostic,omitempty"`
	RunID      string `json:"runId,omitempty"`
	Steps      int    `json:"steps,omitempty"`

	// Für ERROR
	Category string `json:"category,omitempty"`

	// Für SESSION
	SessionID string `json:"sessionId,omitempty"`

	// Für SCRIPTS
	Names []string `json:"names,omitempty"`
}
