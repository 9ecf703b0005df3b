package domain

import "time"

// Difficulty grades a subtopic's practice problem.
type Difficulty string

const (
	Easy   Difficulty = "Easy"
	Medium Difficulty = "Medium"
	Hard   Difficulty = "Hard"
)

// Valid reports whether d is one of the known grades.
func (d Difficulty) Valid() bool {
	switch d {
	case Easy, Medium, Hard:
		return true
	}
	return false
}

// AuthTab selects which form the login modal shows.
type AuthTab string

const (
	TabLogin  AuthTab = "Login"
	TabSignup AuthTab = "Signup"
)

// Subtopic is a single trackable item inside a topic.
type Subtopic struct {
	ID           int        `json:"id"`
	Title        string     `json:"title"`
	YoutubeLink  string     `json:"youtubeLink,omitempty"`
	LeetcodeLink string     `json:"leetcodeLink,omitempty"`
	ArticleLink  string     `json:"articleLink,omitempty"`
	Difficulty   Difficulty `json:"difficulty"`
}

// Topic is read-only catalog data. The id travels as "_id" on the wire.
type Topic struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Subtopics []Subtopic `json:"subtopics"`
}

// Subtopic returns the subtopic with the given id.
func (t Topic) Subtopic(id int) (Subtopic, bool) {
	for _, s := range t.Subtopics {
		if s.ID == id {
			return s, true
		}
	}
	return Subtopic{}, false
}

// CompletedTopic lists completed subtopic ids for one topic.
type CompletedTopic struct {
	TopicID     string `json:"topicId"`
	SubtopicIDs []int  `json:"subtopicIds"`
}

// User is the public view of an account as returned by GET /auth/me.
type User struct {
	Name            string           `json:"name"`
	Email           string           `json:"email"`
	CompletedTopics []CompletedTopic `json:"completedTopics"`
}

// IsCompleted reports whether the user has completed subtopicID within topicID.
func (u User) IsCompleted(topicID string, subtopicID int) bool {
	for _, ct := range u.CompletedTopics {
		if ct.TopicID != topicID {
			continue
		}
		for _, id := range ct.SubtopicIDs {
			if id == subtopicID {
				return true
			}
		}
		return false
	}
	return false
}

// Account is the server-side record behind a User.
type Account struct {
	ID              string
	Name            string
	Email           string
	PasswordHash    string
	CreatedAt       time.Time
	CompletedTopics []CompletedTopic
}

// Public projects the account into the client-facing User shape.
func (a Account) Public() User {
	completed := a.CompletedTopics
	if completed == nil {
		completed = []CompletedTopic{}
	}
	return User{
		Name:            a.Name,
		Email:           a.Email,
		CompletedTopics: completed,
	}
}

// MarkCompletion adds or removes subtopicID from the topic's completed set.
// There is at most one entry per topic; an entry whose set becomes empty is dropped.
// It returns true when the set changed.
func (a *Account) MarkCompletion(topicID string, subtopicID int, isComplete bool) bool {
	for i := range a.CompletedTopics {
		ct := &a.CompletedTopics[i]
		if ct.TopicID != topicID {
			continue
		}
		idx := -1
		for j, id := range ct.SubtopicIDs {
			if id == subtopicID {
				idx = j
				break
			}
		}
		switch {
		case isComplete && idx >= 0:
			return false
		case isComplete:
			ct.SubtopicIDs = append(ct.SubtopicIDs, subtopicID)
			return true
		case idx < 0:
			return false
		}
		ct.SubtopicIDs = append(ct.SubtopicIDs[:idx], ct.SubtopicIDs[idx+1:]...)
		if len(ct.SubtopicIDs) == 0 {
			a.CompletedTopics = append(a.CompletedTopics[:i], a.CompletedTopics[i+1:]...)
		}
		return true
	}
	if !isComplete {
		return false
	}
	a.CompletedTopics = append(a.CompletedTopics, CompletedTopic{
		TopicID:     topicID,
		SubtopicIDs: []int{subtopicID},
	})
	return true
}

// Completion is the payload of POST /completed/mark.
type Completion struct {
	TopicID    string `json:"topicId"`
	SubtopicID int    `json:"subtopicId"`
	IsComplete bool   `json:"isComplete"`
}
