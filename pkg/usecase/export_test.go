package usecase

// RankMemories is exported for testing
var RankMemories = rankMemories

// TimeSpan is exported for testing
var TimeSpan = timeSpan

// ExtractJSON is exported for testing
var ExtractJSON = extractJSON

// Jaccard is exported for testing
var Jaccard = jaccard

// WordSet is exported for testing
var WordSet = wordSet

// CosineSimilarity is exported for testing
var CosineSimilarity = cosineSimilarity

// MergeTasks is exported for testing
var MergeTasks = (*TaskUseCase).mergeTasks

// ConversationTitle is exported for testing
var ConversationTitle = conversationTitle

// RankTopics is exported for testing the generic ranking
var RankTopics = rankFrequencies[string]
