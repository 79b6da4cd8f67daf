package profile

import (
	"context"
	"fmt"
)

// curatedStories holds hand-written narratives for a few flagship cities.
var curatedStories = map[string]string{
	"Paris":    "Paris, the City of Light, has been a center of art, fashion, and culture for centuries. From the medieval Notre-Dame to the iconic Eiffel Tower, every street tells a story of romance and revolution.",
	"London":   "London, a city where ancient history meets modern innovation. From the Tower of London's medieval walls to the gleaming skyscrapers of Canary Wharf, London has been shaping world history for over 2000 years.",
	"Tokyo":    "Tokyo, where tradition and technology dance in perfect harmony. From ancient temples to neon-lit streets, this metropolis represents the fascinating blend of old Japan and cutting-edge modernity.",
	"New York": "New York City, the city that never sleeps. From the Statue of Liberty welcoming immigrants to the towering skyscrapers of Manhattan, NYC embodies the American dream and endless possibilities.",
}

// StoryClient serves narrative content from the curated table, falling back
// to a templated narrative for cities without one. AudioAvailable stays false
// until audio synthesis is implemented.
type StoryClient struct{}

// NewStoryClient constructs a StoryClient.
func NewStoryClient() *StoryClient {
	return &StoryClient{}
}

// Fetch returns the city's narrative. Lookup is by exact name.
func (c *StoryClient) Fetch(_ context.Context, city string) *Story {
	story, ok := curatedStories[city]
	if !ok {
		story = fmt.Sprintf("Discover the unique charm and rich heritage of %s, a city with countless stories waiting to be explored.", city)
	}
	return &Story{Story: story, AudioAvailable: false}
}
