package models

// Notification is a persisted digest produced by the notification batcher,
// summarizing unread messages from one sender. The negotiation core itself
// never writes notifications; it only emits live socket events.
type Notification struct {
	BaseModel
	UserID  string `gorm:"size:36;index;not null" json:"userId"`
	Title   string `gorm:"size:255;not null" json:"title"`
	Content string `gorm:"type:text" json:"message"`
	Link    string `gorm:"size:255" json:"link,omitempty"`
	Read    bool   `gorm:"default:false" json:"read"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
