package ws

// ClientMsg representa uma mensagem recebida do cliente WebSocket
// Type: subscribe | unsubscribe | ping
// PostID: obrigatório para subscribe/unsubscribe
type ClientMsg struct {
	Type   string `json:"type"`   // subscribe | unsubscribe | ping
	PostID string `json:"postId"` // requerido em subscribe/unsubscribe
}

// RoomUpdate é a atualização de atividade enviada aos clientes inscritos
type RoomUpdate struct {
	PostID  string      `json:"postId"`
	Payload interface{} `json:"payload"`
}
