package main

import (
	"regexp"
	"time"

	"github.com/caarlos0/duration"
)

// flagErrors turns the parse errors of pflag into reasons. The first
// submatch of each pattern is the offending flag.
var flagErrors = []struct {
	re     *regexp.Regexp
	reason string
}{
	{regexp.MustCompile(`^unknown flag: (--\S+)`), "Flag %s is not a claude option."},
	{regexp.MustCompile(`^unknown shorthand flag: '.' in (-\S+)`), "Short flag %s is not a claude option."},
	{regexp.MustCompile(`^flag needs an argument: (?:'.' in )?(-{1,2}\S+)`), "Flag %s needs a value."},
	{regexp.MustCompile(`^invalid argument ".*" for "(.*)" flag:`), "Flag %s got a value it cannot use."},
	{regexp.MustCompile(`^bad flag syntax: (\S+)`), "%s is not a flag. Quote it if it is part of the message."},
}

func newFlagParseError(err error) flagParseError {
	s := err.Error()
	for _, fe := range flagErrors {
		if m := fe.re.FindStringSubmatch(s); m != nil {
			return flagParseError{err: err, reason: fe.reason, flag: m[1]}
		}
	}
	return flagParseError{err: err, reason: s}
}

type flagParseError struct {
	err    error
	reason string
	flag   string
}

func (f flagParseError) Error() string {
	return f.err.Error()
}

func (f flagParseError) ReasonFormat() string {
	return f.reason
}

func (f flagParseError) Flag() string {
	return f.flag
}

// durationFlag accepts day and week units on top of what time.ParseDuration
// understands.
type durationFlag time.Duration

func newDurationFlag(val time.Duration, p *time.Duration) *durationFlag {
	*p = val
	return (*durationFlag)(p)
}

func (d *durationFlag) Set(s string) error {
	v, err := duration.Parse(s)
	if err != nil {
		return err //nolint:wrapcheck
	}
	*d = durationFlag(v)
	return nil
}

func (d *durationFlag) String() string {
	return time.Duration(*d).String()
}

func (*durationFlag) Type() string {
	return "duration"
}
