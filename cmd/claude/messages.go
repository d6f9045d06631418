package main

import "strings"

func firstLine(s string) string {
	first, _, _ := strings.Cut(s, "\n")
	return first
}

func shortID(id string) string {
	const short = 8
	if len(id) <= short {
		return id
	}
	return id[:short]
}
