package app

import (
	"context"
	"fmt"
	"io"
	"sync"

	"dsa-tracker/internal/domain"
	"dsa-tracker/internal/log"
)

// TopicSource loads the topic catalog.
type TopicSource interface {
	GetTopics(ctx context.Context) ([]domain.Topic, error)
}

// TopicList fetches the catalog once and renders it against the session user.
type TopicList struct {
	source TopicSource

	once   sync.Once
	mu     sync.RWMutex
	topics []domain.Topic
}

func NewTopicList(source TopicSource) *TopicList {
	return &TopicList{source: source}
}

// Load fetches the catalog on first use. A failed fetch is logged and leaves the list empty.
func (l *TopicList) Load(ctx context.Context) []domain.Topic {
	l.once.Do(func() {
		topics, err := l.source.GetTopics(ctx)
		if err != nil {
			log.Log.WithError(err).Error("fetch topics failed")
			return
		}
		l.mu.Lock()
		l.topics = topics
		l.mu.Unlock()
	})
	return l.Topics()
}

func (l *TopicList) Topics() []domain.Topic {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.topics
}

// Find looks up a subtopic in the loaded catalog.
func (l *TopicList) Find(topicID string, subtopicID int) (domain.Topic, domain.Subtopic, error) {
	for _, t := range l.Topics() {
		if t.ID != topicID {
			continue
		}
		sub, ok := t.Subtopic(subtopicID)
		if !ok {
			return t, domain.Subtopic{}, domain.ErrSubtopicNotFound
		}
		return t, sub, nil
	}
	return domain.Topic{}, domain.Subtopic{}, domain.ErrTopicNotFound
}

// IsChecked derives a checkbox state from the user's completed topics.
func IsChecked(user *domain.User, topicID string, subtopicID int) bool {
	if user == nil {
		return false
	}
	return user.IsCompleted(topicID, subtopicID)
}

// Render writes the catalog. Checkboxes appear only when user is non-nil.
func (l *TopicList) Render(w io.Writer, user *domain.User) error {
	ew := &errWriter{w: w}
	if user == nil {
		ew.printf("Log In to track your progress!\n")
		ew.printf("  run `tracker login` or `tracker signup`\n\n")
	}

	for _, topic := range l.Topics() {
		ew.printf("%s [%s]\n", topic.Title, topic.ID)
		for _, sub := range topic.Subtopics {
			box := ""
			if user != nil {
				if IsChecked(user, topic.ID, sub.ID) {
					box = "[x] "
				} else {
					box = "[ ] "
				}
			}
			ew.printf("  %s#%d %s (%s)\n", box, sub.ID, sub.Title, sub.Difficulty)
			if sub.YoutubeLink != "" {
				ew.printf("      Watch: %s\n", sub.YoutubeLink)
			}
			if sub.LeetcodeLink != "" {
				ew.printf("      Practice on Leet Code: %s\n", sub.LeetcodeLink)
			}
			if sub.ArticleLink != "" {
				ew.printf("      Read More: %s\n", sub.ArticleLink)
			}
		}
		ew.printf("\n")
	}
	return ew.err
}

type errWriter struct {
	w   io.Writer
	err error
}

func (e *errWriter) printf(format string, args ...any) {
	if e.err != nil {
		return
	}
	_, e.err = fmt.Fprintf(e.w, format, args...)
}
