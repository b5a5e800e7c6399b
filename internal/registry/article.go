package registry

import (
	"regexp"
	"strings"
)

const (
	ArticleBaseURL = "https://www.law.go.kr"
	StatuteBaseURL = "https://www.law.go.kr/LSW/lsInfoP.do"
)

const articleSuffix = `제\d+조(?:의\d+)?`

var (
	articleFull  = regexp.MustCompile(`^(.+?)\s+(` + articleSuffix + `)\s*$`)
	articleStrip = regexp.MustCompile(`\s*` + articleSuffix + `\s*$`)
)

// ParseArticle splits "공인회계사법 제21조" into the law name and the article token.
func ParseArticle(citation string) (law, article string, ok bool) {
	s := strings.TrimSpace(citation)
	if s == "" {
		return "", "", false
	}
	m := articleFull.FindStringSubmatch(s)
	if m == nil {
		return "", "", false
	}
	law = strings.TrimSpace(m[1])
	article = strings.TrimSpace(m[2])
	if law == "" || article == "" {
		return "", "", false
	}
	return law, article, true
}

func StripArticle(citation string) string {
	return strings.TrimSpace(articleStrip.ReplaceAllString(strings.TrimSpace(citation), ""))
}

// ArticleURL builds the article deep link. law.go.kr only accepts the Korean
// path segments unescaped.
func ArticleURL(law, article string) string {
	return ArticleBaseURL + "/법령/" + law + "/" + article
}

func StatuteURL(mst string) string {
	return StatuteBaseURL + "?lsiSeq=" + mst
}
