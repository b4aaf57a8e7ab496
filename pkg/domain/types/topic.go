package types

// Topic is a coarse subject tag attached to a memory record
type Topic string

const (
	TopicBusiness       Topic = "business"
	TopicPersonalGrowth Topic = "personal_growth"
	TopicHealth         Topic = "health"
	TopicEducation      Topic = "education"
	TopicTechnology     Topic = "technology"
	TopicCreativity     Topic = "creativity"
	TopicFinance        Topic = "finance"
)

// AllTopics returns all topics in table order
func AllTopics() []Topic {
	return []Topic{
		TopicBusiness,
		TopicPersonalGrowth,
		TopicHealth,
		TopicEducation,
		TopicTechnology,
		TopicCreativity,
		TopicFinance,
	}
}

// IsValid checks if the topic is known
func (t Topic) IsValid() bool {
	for _, v := range AllTopics() {
		if v == t {
			return true
		}
	}
	return false
}

func (t Topic) String() string {
	return string(t)
}

// Emotion is a coarse sentiment tag detected in the user's message
type Emotion string

const (
	EmotionPositive   Emotion = "positive"
	EmotionNegative   Emotion = "negative"
	EmotionNeutral    Emotion = "neutral"
	EmotionDetermined Emotion = "determined"
)

// AllEmotions returns all emotions in table order
func AllEmotions() []Emotion {
	return []Emotion{
		EmotionPositive,
		EmotionNegative,
		EmotionNeutral,
		EmotionDetermined,
	}
}

// IsValid checks if the emotion is known
func (e Emotion) IsValid() bool {
	for _, v := range AllEmotions() {
		if v == e {
			return true
		}
	}
	return false
}

func (e Emotion) String() string {
	return string(e)
}
