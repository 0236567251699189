package catalog

// Default returns the collection declarations served by the papyrus API:
// users who author posts, posts that carry comments, comments that point
// back at their author. The users.bestFriend self-reference exists so the
// resolver's cycle guard has a real field to protect.
func Default() (*Catalog, error) {
	return New(
		Collection{
			Name:     "users",
			Required: []string{"name"},
			Refs: []RefField{
				{Name: "bestFriend", Target: "users"},
				{Name: "posts", Target: "posts", Slice: true},
			},
		},
		Collection{
			Name:     "posts",
			Required: []string{"title"},
			Refs: []RefField{
				{Name: "author", Target: "users"},
				{Name: "comments", Target: "comments", Slice: true},
			},
		},
		Collection{
			Name:     "comments",
			Required: []string{"body"},
			Refs: []RefField{
				{Name: "author", Target: "users"},
			},
		},
	)
}
