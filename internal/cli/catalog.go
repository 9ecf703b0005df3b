package cli

import "dsa-tracker/internal/domain"

// sampleTopics is the built-in catalog used when no database is configured,
// and the seed for `migrate --seed`.
func sampleTopics() []domain.Topic {
	return []domain.Topic{
		{
			ID:    "arrays",
			Title: "Arrays",
			Subtopics: []domain.Subtopic{
				{
					ID: 1, Title: "Two Sum", Difficulty: domain.Easy,
					YoutubeLink:  "https://www.youtube.com/watch?v=KLlXCFG5TnA",
					LeetcodeLink: "https://leetcode.com/problems/two-sum/",
					ArticleLink:  "https://www.geeksforgeeks.org/check-if-pair-with-given-sum-exists-in-array/",
				},
				{
					ID: 2, Title: "Best Time to Buy and Sell Stock", Difficulty: domain.Easy,
					LeetcodeLink: "https://leetcode.com/problems/best-time-to-buy-and-sell-stock/",
				},
				{
					ID: 3, Title: "Product of Array Except Self", Difficulty: domain.Medium,
					LeetcodeLink: "https://leetcode.com/problems/product-of-array-except-self/",
				},
				{
					ID: 4, Title: "Trapping Rain Water", Difficulty: domain.Hard,
					YoutubeLink:  "https://www.youtube.com/watch?v=ZI2z5pq0TqA",
					LeetcodeLink: "https://leetcode.com/problems/trapping-rain-water/",
				},
			},
		},
		{
			ID:    "linked-lists",
			Title: "Linked Lists",
			Subtopics: []domain.Subtopic{
				{
					ID: 1, Title: "Reverse Linked List", Difficulty: domain.Easy,
					LeetcodeLink: "https://leetcode.com/problems/reverse-linked-list/",
				},
				{
					ID: 2, Title: "Linked List Cycle", Difficulty: domain.Easy,
					LeetcodeLink: "https://leetcode.com/problems/linked-list-cycle/",
					ArticleLink:  "https://en.wikipedia.org/wiki/Cycle_detection",
				},
				{
					ID: 3, Title: "Merge k Sorted Lists", Difficulty: domain.Hard,
					LeetcodeLink: "https://leetcode.com/problems/merge-k-sorted-lists/",
				},
			},
		},
		{
			ID:    "graphs",
			Title: "Graphs",
			Subtopics: []domain.Subtopic{
				{
					ID: 1, Title: "Number of Islands", Difficulty: domain.Medium,
					LeetcodeLink: "https://leetcode.com/problems/number-of-islands/",
				},
				{
					ID: 2, Title: "Course Schedule", Difficulty: domain.Medium,
					LeetcodeLink: "https://leetcode.com/problems/course-schedule/",
					ArticleLink:  "https://en.wikipedia.org/wiki/Topological_sorting",
				},
				{
					ID: 3, Title: "Word Ladder", Difficulty: domain.Hard,
					LeetcodeLink: "https://leetcode.com/problems/word-ladder/",
				},
			},
		},
	}
}
