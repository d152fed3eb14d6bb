package httptransport

// 注意：所有错误响应统一使用 {"error": "..."} 形状，前端依赖这个格式。

// errorResponse 错误响应
type errorResponse struct {
	Error string `json:"error"`
}

// 通用错误消息
const (
	MsgInvalidRequest  = "Invalid request body"
	MsgHandleLength    = "Handle must be between 3 and 20 characters"
	MsgHandleCharset   = "Handle may only contain letters, digits and underscores"
	MsgHandleTaken     = "This handle is already taken"
	MsgUserNotFound    = "User not found"
	MsgMessageNotFound = "Message not found"
	MsgEmptyContent    = "Message cannot be empty"
	MsgContentTooLong  = "Message cannot exceed 500 characters"
	MsgRouteNotFound   = "Route not found"
	MsgInternalError   = "Internal server error"
)
