package sink

import "fmt"

type Kind int

const (
	KindSendMessage Kind = iota
	KindDeleteMessages
	KindAddRole
	KindRemoveRole
	KindAddReaction
)

func (k Kind) String() string {
	switch k {
	case KindSendMessage:
		return "send_message"
	case KindDeleteMessages:
		return "delete_messages"
	case KindAddRole:
		return "add_role"
	case KindRemoveRole:
		return "remove_role"
	case KindAddReaction:
		return "add_reaction"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Action is one outbound side effect on the chat platform.
type Action struct {
	Kind       Kind
	GuildID    string
	ChannelID  string
	UserID     string
	RoleID     string
	MessageID  string
	MessageIDs []string
	Content    string
	Emoji      string
}

func SendMessage(channelID, content string) Action {
	return Action{Kind: KindSendMessage, ChannelID: channelID, Content: content}
}

// Reply sends content to channelID as a reply to messageID.
func Reply(channelID, messageID, content string) Action {
	return Action{Kind: KindSendMessage, ChannelID: channelID, MessageID: messageID, Content: content}
}

func DeleteMessages(channelID string, messageIDs ...string) Action {
	return Action{Kind: KindDeleteMessages, ChannelID: channelID, MessageIDs: messageIDs}
}

func AddRole(guildID, userID, roleID string) Action {
	return Action{Kind: KindAddRole, GuildID: guildID, UserID: userID, RoleID: roleID}
}

func RemoveRole(guildID, userID, roleID string) Action {
	return Action{Kind: KindRemoveRole, GuildID: guildID, UserID: userID, RoleID: roleID}
}

func AddReaction(channelID, messageID, emoji string) Action {
	return Action{Kind: KindAddReaction, ChannelID: channelID, MessageID: messageID, Emoji: emoji}
}

// Destination is the ordering key: actions sharing it run in submission order.
func (a Action) Destination() string {
	switch a.Kind {
	case KindAddRole, KindRemoveRole:
		return a.GuildID + "/" + a.UserID
	default:
		return a.ChannelID
	}
}

func (a Action) validate() error {
	switch a.Kind {
	case KindSendMessage:
		if a.ChannelID == "" || a.Content == "" {
			return fmt.Errorf("send_message needs a channel and content")
		}
	case KindDeleteMessages:
		if a.ChannelID == "" || len(a.MessageIDs) == 0 {
			return fmt.Errorf("delete_messages needs a channel and at least one message")
		}
	case KindAddRole, KindRemoveRole:
		if a.GuildID == "" || a.UserID == "" || a.RoleID == "" {
			return fmt.Errorf("%s needs a guild, user and role", a.Kind)
		}
	case KindAddReaction:
		if a.ChannelID == "" || a.MessageID == "" || a.Emoji == "" {
			return fmt.Errorf("add_reaction needs a channel, message and emoji")
		}
	default:
		return fmt.Errorf("unknown action %s", a.Kind)
	}
	return nil
}
