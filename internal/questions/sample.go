package questions

import "techkwiz-quiz-service/internal/domain"

// sampleQuestions is the last-resort set served when no other source has enough questions.
func sampleQuestions() []domain.Question {
	return []domain.Question{
		{
			ID:            "fallback-1",
			Question:      "Which social media platform is known for short-form videos?",
			Options:       []string{"Instagram", "TikTok", "Twitter", "Snapchat"},
			CorrectAnswer: 1,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "TikTok was originally called Musical.ly!",
			Category:      "social-media",
			Subcategory:   "social-media",
		},
		{
			ID:       "fallback-2",
			Question: "What does 'AI' stand for?",
			Options: []string{
				"Artificial Intelligence",
				"Automated Internet",
				"Advanced Interface",
				"Algorithmic Integration",
			},
			CorrectAnswer: 0,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "The term 'Artificial Intelligence' was first coined in 1956!",
			Category:      "technology",
			Subcategory:   "technology",
		},
		{
			ID:            "fallback-3",
			Question:      "Which company created the iPhone?",
			Options:       []string{"Google", "Samsung", "Apple", "Microsoft"},
			CorrectAnswer: 2,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "The first iPhone was released in 2007!",
			Category:      "technology",
			Subcategory:   "technology",
		},
		{
			ID:       "fallback-4",
			Question: "What does 'URL' stand for?",
			Options: []string{
				"Universal Resource Locator",
				"Uniform Resource Locator",
				"Unified Resource Locator",
				"Unique Resource Locator",
			},
			CorrectAnswer: 1,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "The first website was created in 1991 by Tim Berners-Lee!",
			Category:      "technology",
			Subcategory:   "technology",
		},
		{
			ID:            "fallback-5",
			Question:      "Which of these is NOT a programming language?",
			Options:       []string{"Python", "Java", "Cobra", "Snake"},
			CorrectAnswer: 3,
			Difficulty:    domain.DifficultyBeginner,
			FunFact:       "Python was named after the comedy group Monty Python!",
			Category:      "technology",
			Subcategory:   "technology",
		},
	}
}
