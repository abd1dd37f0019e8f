package test

import (
	"strconv"
	"strings"
)

// Keys of the aspects returned by [ResponseAspects].
const (
	VersionKey = "version"
	MemberKey  = "member"
	IDKey      = "id"
)

// Values of the [MemberKey] aspect.
const (
	ResultMember     = `"result":42`
	NullResultMember = `"result":null`
	ErrorMember      = `"error":{"code":-32601,"message":"Method not found","data":"foo"}`
	BothMembers      = ResultMember + "," + ErrorMember
	NoMembers        = ""
)

// ResponseAspects returns the aspects of a single response object: its "jsonrpc" member, its "result"/"error"
// members, and its "id" member compared with id, the ID of the request. Values are raw JSON, "" means the member is
// missing.
func ResponseAspects(id string) []Aspect {
	return []Aspect{
		NewAspect(VersionKey,
			NewValue("v2", `"2.0"`),
			NewValue("v1", `"1.0"`),
			NewValue("numeric-version", `2.0`),
			NewValue("null-version", `null`),
			NewValue("no-version", ""),
		),
		NewAspect(MemberKey,
			NewValue("result", ResultMember),
			NewValue("null-result", NullResultMember),
			NewValue("error", ErrorMember),
			NewValue("result-and-error", BothMembers),
			NewValue("no-result-nor-error", NoMembers),
		),
		NewAspect(IDKey,
			NewValue("matching-id", strconv.Quote(id)),
			NewValue("other-id", `"other"`),
			NewValue("numeric-id", id),
			NewValue("null-id", `null`),
			NewValue("no-id", ""),
		),
	}
}

// ResponseBody returns the response object of a case generated from [ResponseAspects].
func ResponseBody(c Case) []byte {
	members := make([]string, 0, 3)

	if v := c.String(VersionKey); v != "" {
		members = append(members, `"jsonrpc":`+v)
	}

	if m := c.String(MemberKey); m != "" {
		members = append(members, m)
	}

	if id := c.String(IDKey); id != "" {
		members = append(members, `"id":`+id)
	}

	return []byte("{" + strings.Join(members, ",") + "}")
}

// ValidShape reports whether the response of a case is a well formed response, whatever its ID.
func ValidShape(c Case) bool {
	if c.String(VersionKey) != `"2.0"` || c.String(IDKey) == "" {
		return false
	}

	m := c.String(MemberKey)

	return m == ResultMember || m == NullResultMember || m == ErrorMember
}

// MatchingID reports whether the response of a case carries the ID of the request, a numeric ID never matches.
func MatchingID(c Case) bool {
	return strings.HasPrefix(c.String(IDKey), `"`) && c.String(IDKey) != `"other"`
}
