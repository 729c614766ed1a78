package types

type CreateRoomRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type PostMessageRequest struct {
	Sender  string `json:"sender"`
	Content string `json:"content"`
}

type UserCountResponse struct {
	Count int64 `json:"count"`
}

type HealthResponse struct {
	Status string `json:"status"`
}
