package kv

// Key layout shared by every process that talks to the same Redis.
const TrendingKey = "trending"

// RateKey is the hourly admission counter for a source address on a post.
func RateKey(addr, postID string) string { return "rate:" + addr + ":" + postID }

// DupKey is the duplicate-view marker for a session on a post.
func DupKey(sessionID, postID string) string { return "dup:" + sessionID + ":" + postID }

// StatsKey is the cached aggregate for a post.
func StatsKey(postID string) string { return "stats:" + postID }
