package queue

const TaskTypeMediaCleanup = "media:cleanup"

type MediaCleanupPayload struct {
	PostID int64 `json:"post_id"`
}
