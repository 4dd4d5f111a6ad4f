package webhook

// Typed views of the GitHub webhook payloads this service consumes. Only the
// fields the mapper extracts are declared.

type repository struct {
	FullName string `json:"full_name"`
	Name     string `json:"name"`
}

type user struct {
	Login string `json:"login"`
	Name  string `json:"name"`
}

type pushCommit struct {
	ID      string `json:"id"`
	URL     string `json:"url"`
	Message string `json:"message"`
}

type pushPayload struct {
	Ref        string       `json:"ref"`
	Compare    string       `json:"compare"`
	Commits    []pushCommit `json:"commits"`
	Repository repository   `json:"repository"`
	Pusher     user         `json:"pusher"`
	Sender     user         `json:"sender"`
}

type pullRequestPayload struct {
	Action      string     `json:"action"`
	Number      int        `json:"number"`
	Repository  repository `json:"repository"`
	Sender      user       `json:"sender"`
	PullRequest struct {
		Title        string `json:"title"`
		HTMLURL      string `json:"html_url"`
		Merged       bool   `json:"merged"`
		Additions    int    `json:"additions"`
		Deletions    int    `json:"deletions"`
		ChangedFiles int    `json:"changed_files"`
		Head         struct {
			Ref string `json:"ref"`
		} `json:"head"`
		Base struct {
			Ref string `json:"ref"`
		} `json:"base"`
	} `json:"pull_request"`
}

type issuesPayload struct {
	Action     string     `json:"action"`
	Repository repository `json:"repository"`
	Sender     user       `json:"sender"`
	Issue      struct {
		Number  int    `json:"number"`
		Title   string `json:"title"`
		HTMLURL string `json:"html_url"`
	} `json:"issue"`
}

type refPayload struct {
	Ref        string     `json:"ref"`
	RefType    string     `json:"ref_type"`
	Repository repository `json:"repository"`
	Sender     user       `json:"sender"`
}

type releasePayload struct {
	Action     string     `json:"action"`
	Repository repository `json:"repository"`
	Sender     user       `json:"sender"`
	Release    struct {
		TagName string `json:"tag_name"`
		Name    string `json:"name"`
		HTMLURL string `json:"html_url"`
	} `json:"release"`
}
