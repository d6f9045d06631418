package main

import "math/rand/v2"

var examples = map[string]string{
	"Start a conversation":           `claude new "Hi Claude!"`,
	"Ask about a file":               `claude send -C --attach notes.pdf "summarize the attachment"`,
	"Pipe a diff in for review":      `git diff | claude send -c "code review" "review this change"`,
	"Watch the answer as it arrives": `claude send -C --stream "write a haiku about pipes"`,
}

func randomExample() (string, string) {
	keys := make([]string, 0, len(examples))
	for k := range examples {
		keys = append(keys, k)
	}
	desc := keys[rand.IntN(len(keys))]
	return desc, examples[desc]
}
