package fanout

// Event types delivered on per-user notification destinations.
const (
	EventAddChat            = "addChat"
	EventRemoveChat         = "removeChat"
	EventAddMember          = "addMember"
	EventRemoveMember       = "removeMember"
	EventAddAdmin           = "addAdmin"
	EventUpdateChat         = "updateChat"
	EventUpdateUnreadCounts = "updateUnreadCounts"
)

// Event types delivered on per-chat destinations.
const (
	EventMessageSend   = "send"
	EventMessageEdit   = "edit"
	EventMessageDelete = "delete"
)

// Event is the typed envelope delivered to subscribers. The payload shape is
// fixed per type: full chat for addChat, user id for addMember/removeMember,
// chat id for removeChat/addAdmin/updateUnreadCounts, changed fields for
// updateChat, and the message (or message id for deletes) on chat
// destinations.
type Event struct {
	Type    string      `json:"type"`
	ChatID  string      `json:"chatId,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

// UserDestination names the private notification channel of a user.
func UserDestination(userID string) string {
	return "notifications/" + userID
}

// ChatDestination names the shared channel of a chat.
func ChatDestination(chatID string) string {
	return "chat/" + chatID
}
