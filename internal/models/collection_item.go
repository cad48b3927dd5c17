package models

// CollectionItem records how many copies of a card a user owns. One row per
// (user, card); applying a quantity of zero removes the row.
type CollectionItem struct {
	BaseModel
	UserID   string `gorm:"size:64;uniqueIndex:idx_collection_user_card" json:"user_id"`
	CardID   string `gorm:"size:32;uniqueIndex:idx_collection_user_card" json:"card_id"`
	Quantity int    `json:"quantity"`

	Card *CardRecord `gorm:"foreignKey:CardID;references:ID" json:"card,omitempty"`
}
