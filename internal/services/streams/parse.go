package streams

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
)

// projectPattern matches /projects/{id}[/models/{model}[,{model}...]]
var projectPattern = regexp.MustCompile(`/projects/(?P<project>\w+)(?:/models/(?P<model>\$?\w+(?:@\w+)?)(?P<additional>(?:,\$?\w+(?:@\w+)?)*))?`)

// objectIDLength identifies a project model value that is really an object id
const objectIDLength = 32

// ParseURL parses a stream or project url. The result has no account resolver;
// use Resolver.New to get a wrapper that can resolve accounts.
//
// Recognised shapes:
//
//	{server}/streams/{id}
//	{server}/streams/{id}/globals
//	{server}/streams/{id}/globals/{commit}
//	{server}/streams/{id}/commits/{commit}
//	{server}/streams/{id}/objects/{object}
//	{server}/streams/{id}/branches/{branch[/more/parts]}
//	{server}/projects/{id}/models/{model}[@{version}]
//
// An optional ?u={user id} query selects the account.
func ParseURL(input string) (*StreamWrapper, error) {
	u, err := url.Parse(input)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &ParseError{Input: input, Reason: "not an absolute url", Err: err}
	}

	w := &StreamWrapper{
		OriginalInput: input,
		ServerURL:     u.Scheme + "://" + u.Host,
		UserID:        u.Query().Get("u"),
	}

	path := u.EscapedPath()
	if match := projectPattern.FindStringSubmatch(path); match != nil {
		if err := w.parseProject(input, match); err != nil {
			return nil, err
		}
		return w, nil
	}

	if err := w.parseStream(input, pathSegments(path)); err != nil {
		return nil, err
	}
	return w, nil
}

func (w *StreamWrapper) parseProject(input string, match []string) error {
	project := match[projectPattern.SubexpIndex("project")]
	model := match[projectPattern.SubexpIndex("model")]
	additional := match[projectPattern.SubexpIndex("additional")]

	if model == "" {
		return &ParseError{Input: input, Reason: "The provided url is not pointing to any model in the project."}
	}
	if additional != "" || model == "all" {
		return &ParseError{Input: input, Reason: "multi-model urls are not supported", Err: ErrUnsupportedURL}
	}
	if strings.HasPrefix(model, "$") {
		return &ParseError{Input: input, Reason: "federation model urls are not supported", Err: ErrUnsupportedURL}
	}

	w.StreamID = project
	switch {
	case len(model) == objectIDLength:
		w.ObjectID = model
	case strings.Contains(model, "@"):
		parts := strings.SplitN(model, "@", 2)
		w.BranchName = parts[0]
		w.CommitID = parts[1]
	default:
		w.BranchName = model
	}
	return nil
}

func (w *StreamWrapper) parseStream(input string, segs []string) error {
	if len(segs) >= 4 && strings.EqualFold(segs[3], "branches/") {
		if len(segs) == 4 {
			return &ParseError{Input: input, Reason: "missing branch name"}
		}
		branch, err := url.PathUnescape(strings.Join(segs[4:], ""))
		if err != nil {
			return &ParseError{Input: input, Reason: "invalid branch name", Err: err}
		}
		if w.StreamID, err = segmentValue(input, segs[2]); err != nil {
			return err
		}
		w.BranchName = strings.TrimSuffix(branch, "/")
		return nil
	}

	var err error
	switch len(segs) {
	case 3:
		if !strings.EqualFold(segs[1], "streams/") {
			return &ParseError{Input: input}
		}
		w.StreamID, err = segmentValue(input, segs[2])

	case 4:
		if !strings.HasPrefix(strings.ToLower(segs[3]), "globals") {
			return &ParseError{Input: input}
		}
		if w.StreamID, err = segmentValue(input, segs[2]); err != nil {
			return err
		}
		w.BranchName, err = segmentValue(input, segs[3])

	case 5:
		if w.StreamID, err = segmentValue(input, segs[2]); err != nil {
			return err
		}
		switch strings.ToLower(segs[3]) {
		case "commits/":
			w.CommitID, err = segmentValue(input, segs[4])
		case "globals/":
			w.BranchName = "globals"
			w.CommitID, err = segmentValue(input, segs[4])
		case "objects/":
			w.ObjectID, err = segmentValue(input, segs[4])
		default:
			return &ParseError{Input: input}
		}

	default:
		return &ParseError{Input: input, Reason: fmt.Sprintf("unexpected path with %d segments", len(segs))}
	}

	return err
}

// segmentValue unescapes a path segment without its slashes
func segmentValue(input, segment string) (string, error) {
	value, err := url.PathUnescape(trimSlash(segment))
	if err != nil {
		return "", &ParseError{Input: input, Reason: "invalid escape in path", Err: err}
	}
	return value, nil
}

// pathSegments splits an escaped path after every slash, keeping the slash:
// "/streams/abc/branches/dev" -> ["/", "streams/", "abc/", "branches/", "dev"]
func pathSegments(path string) []string {
	if path == "" {
		path = "/"
	}

	segs := []string{}
	start := 0
	for i := 0; i < len(path); i++ {
		if path[i] == '/' {
			segs = append(segs, path[start:i+1])
			start = i + 1
		}
	}
	if start < len(path) {
		segs = append(segs, path[start:])
	}
	return segs
}

func trimSlash(segment string) string {
	return strings.ReplaceAll(segment, "/", "")
}

func isAbsoluteURL(input string) bool {
	u, err := url.Parse(input)
	return err == nil && u.Scheme != "" && u.Host != ""
}
