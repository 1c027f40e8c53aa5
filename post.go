package nostr

// Post is a view projected from a text-note event: the content plus the
// thread references carried in its tags.
type Post struct {
	ID        string
	Content   string
	Author    string
	CreatedAt Timestamp

	// RootReference is the id of the thread root, Reference the id of the
	// immediate parent, MentionTo the first mentioned pubkey. All may be
	// empty.
	RootReference string
	Reference     string
	MentionTo     string
}

// NewPost projects a Post from an event: the first e-tag marked "root",
// the first marked "reply" and the first p-tag. Events carrying no NIP-10
// markers at all fall back to positional e-tags (first is root, last is
// reply).
func NewPost(evt *Event) Post {
	post := Post{
		ID:        evt.ID,
		Content:   evt.Content,
		Author:    evt.PubKey,
		CreatedAt: evt.CreatedAt,
	}

	root := evt.Tags.FindWithMarker("e", "root")
	reply := evt.Tags.FindWithMarker("e", "reply")

	if root == nil && reply == nil {
		root = evt.Tags.Find("e")
		reply = evt.Tags.FindLast("e")
	}

	if root != nil {
		post.RootReference = root[1]
	}
	if reply != nil {
		post.Reference = reply[1]
	}

	if tag := evt.Tags.Find("p"); tag != nil {
		post.MentionTo = tag[1]
	}

	return post
}

// replyTags builds the e/p tags for a reply to parent, carrying the
// thread root over from the parent when it has one.
func replyTags(parent Post) Tags {
	root := parent.RootReference
	if root == "" {
		// the parent is itself a thread root
		root = parent.ID
	}

	tags := Tags{
		Tag{"e", root, "", "root"},
		Tag{"e", parent.ID, "", "reply"},
	}

	if parent.Author != "" {
		tags = append(tags, Tag{"p", parent.Author})
	}

	return tags
}
