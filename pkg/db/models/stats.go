package models

// CreatorCount pairs a creator with either a tag count or a use count.
type CreatorCount struct {
	CreatorID string
	Count     int64
}

type ServerStats struct {
	TotalTags         int64
	TotalUses         int64
	TopTags           []TagSummary
	TopCreators       []CreatorCount
	TopCreatorsByUses []CreatorCount
}

type MemberStats struct {
	CreatorID string
	OwnedTags int64
	TotalUses int64
	TopTags   []TagSummary
}
