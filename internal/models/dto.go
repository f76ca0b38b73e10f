package models

// UserData is the signed-in user's own profile card.
type UserData struct {
	Username       string `json:"userName"`
	UserAt         string `json:"userAt"`
	FollowingCount int    `json:"followingCount"`
	FollowersCount int    `json:"followersCount"`
	Bio            string `json:"bio"`
	Icon           string `json:"icon"`
}

// ProfileData is a public profile as seen by the (optional) viewer.
type ProfileData struct {
	Username       string `json:"userName"`
	UserAt         string `json:"userAt"`
	FollowersCount int    `json:"followersCount"`
	FollowingCount int    `json:"followingCount"`
	IsFollowing    bool   `json:"isFollowing"`
	IsHimself      bool   `json:"isHimself"`
	Bio            string `json:"bio"`
	Icon           string `json:"icon"`
}

// UserSummary is one row of a follow list or a search result.
type UserSummary struct {
	UserAt   string `json:"userAt"`
	Username string `json:"userName"`
	Icon     string `json:"icon"`
}

// ResponsePost is a post or comment joined with its owner and the viewer's like state.
type ResponsePost struct {
	HasThisUserLiked bool   `json:"has_this_user_liked"`
	OwnerID          uint   `json:"owner_id"`
	PostID           uint   `json:"post_id"`
	UnixTime         string `json:"unix_time"`
	UserAt           string `json:"user_at"`
	Username         string `json:"username"`
	LikesCount       int    `json:"likes_count"`
	CommentsCount    int    `json:"comments_count"`
	Icon             string `json:"icon"`
	Text             string `json:"text"`
	Image            string `json:"image"`
}

// NewUserSummary projects a user onto the list shape.
func NewUserSummary(u *User) UserSummary {
	return UserSummary{
		UserAt:   u.UserAt,
		Username: u.Username,
		Icon:     u.IconString(),
	}
}
