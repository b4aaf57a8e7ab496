package heuristics

import (
	"time"

	"github.com/secmon-lab/coachmem/pkg/domain/types"
)

// DefaultTable returns the built-in bilingual (French and English) table
func DefaultTable() *Table {
	return &Table{
		ImportanceKeywords: []string{
			"important", "urgent", "objectif", "goal", "décision", "problème",
			"solution", "projet", "plan", "échéance", "deadline",
			"objective", "decision", "problem", "project",
		},
		Topics: []TopicRule{
			{Topic: types.TopicBusiness, Keywords: []string{"business", "entreprise", "startup", "marketing", "vente", "company", "sales"}},
			{Topic: types.TopicPersonalGrowth, Keywords: []string{"développement", "croissance", "habitude", "mindset", "growth", "habit"}},
			{Topic: types.TopicHealth, Keywords: []string{"santé", "sport", "nutrition", "fitness", "bien-être", "health", "wellness", "exercise"}},
			{Topic: types.TopicEducation, Keywords: []string{"apprendre", "étudier", "formation", "compétence", "cours", "learn", "study", "course", "skill"}},
			{Topic: types.TopicTechnology, Keywords: []string{"tech", "programmation", "code", "développement", "app", "programming", "software"}},
			{Topic: types.TopicCreativity, Keywords: []string{"créatif", "art", "design", "écriture", "musique", "creative", "writing", "music"}},
			{Topic: types.TopicFinance, Keywords: []string{"argent", "budget", "investissement", "épargne", "finance", "money", "saving", "invest"}},
		},
		Emotions: []EmotionRule{
			{Emotion: types.EmotionPositive, Keywords: []string{"heureux", "content", "motivé", "enthousiaste", "super", "génial", "happy", "excited", "great"}},
			{Emotion: types.EmotionNegative, Keywords: []string{"triste", "déçu", "frustré", "difficile", "problème", "inquiet", "sad", "disappointed", "frustrated", "difficult", "problem", "worried"}},
			{Emotion: types.EmotionNeutral, Keywords: []string{"normal", "ok", "bien", "standard"}},
			{Emotion: types.EmotionDetermined, Keywords: []string{"déterminé", "motivé", "prêt", "go", "action", "objectif", "determined", "ready", "motivated"}},
		},
		Priorities: []PriorityRule{
			{Priority: types.PriorityHigh, Keywords: []string{"urgent", "important", "priorité", "critique", "immédiat", "crucial", "priority", "critical", "asap", "immediately"}},
			{Priority: types.PriorityMedium, Keywords: []string{"normal", "standard", "moyen", "régulier", "regular"}},
			{Priority: types.PriorityLow, Keywords: []string{"quand possible", "si temps", "optionnel", "bonus", "plus tard", "when possible", "if time", "optional", "later"}},
		},
		DateCues: []DateCue{
			{Phrases: []string{"aujourd'hui", "today"}, OffsetDays: 0},
			{Phrases: []string{"demain", "tomorrow"}, OffsetDays: 1},
			{Phrases: []string{"cette semaine", "this week"}, OffsetDays: 3},
			{Phrases: []string{"la semaine prochaine", "next week"}, OffsetDays: 7},
			{Phrases: []string{"ce mois", "this month"}, OffsetDays: 15},
		},
		Weekdays: []WeekdayCue{
			{Name: "lundi", Weekday: time.Monday},
			{Name: "mardi", Weekday: time.Tuesday},
			{Name: "mercredi", Weekday: time.Wednesday},
			{Name: "jeudi", Weekday: time.Thursday},
			{Name: "vendredi", Weekday: time.Friday},
			{Name: "samedi", Weekday: time.Saturday},
			{Name: "dimanche", Weekday: time.Sunday},
			{Name: "monday", Weekday: time.Monday},
			{Name: "tuesday", Weekday: time.Tuesday},
			{Name: "wednesday", Weekday: time.Wednesday},
			{Name: "thursday", Weekday: time.Thursday},
			{Name: "friday", Weekday: time.Friday},
			{Name: "saturday", Weekday: time.Saturday},
			{Name: "sunday", Weekday: time.Sunday},
		},
		ActionVerbs: []string{
			"faire", "créer", "développer", "apprendre", "étudier", "lire", "écrire",
			"planifier", "organiser", "préparer", "rechercher", "analyser", "contacter",
			"appeler", "envoyer", "acheter", "vendre", "terminer", "finir", "commencer",
			"démarrer", "installer", "configurer", "tester", "vérifier", "réviser",
			"buy", "call", "send", "write", "finish", "prepare", "schedule",
			"organize", "contact", "review", "install", "configure", "create", "learn", "study",
		},
		FillerPrefixes: []string{
			"je vais", "je dois", "il faut", "je veux",
			"i need to", "i have to", "i want to", "i will", "i must", "need to",
		},
		GoalKeywords:     []string{"objectif", "goal", "veux", "souhaite", "planifie", "projet", "objective", "want", "plan", "project"},
		PositiveFeedback: []string{"merci", "parfait", "excellent", "super", "génial", "thanks", "thank you", "perfect", "great"},
		NegativeFeedback: []string{"trop long", "compliqué", "pas clair", "too long", "complicated", "not clear", "unclear"},
	}
}
