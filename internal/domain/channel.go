package domain

// ChannelProfile is a public account enriched with subscription counts,
// computed relative to the viewing user.
type ChannelProfile struct {
	PublicUser
	SubscriberCount   int64 `json:"subscribersCount"`
	SubscribedToCount int64 `json:"subscribedToCount"`
	IsSubscribed      bool  `json:"isSubscribed"`
}
