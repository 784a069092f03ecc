package fetch

import (
	"context"
	"net/http"

	"github.com/google/go-github/v69/github"
)

// TreeEntry is one blob or tree entry from a recursive GitHub tree walk.
type TreeEntry struct {
	Path string
	Type string // "blob" or "tree"
	Size int64
}

// GitHubApiFetcher wraps the GitHub REST calls the GitHub scraper strategy
// needs at depth 0: default branch resolution and a recursive tree walk. It
// does not implement the Fetcher interface — its results are structured,
// not raw bytes — and is used internally by the GitHub strategy rather than
// registered in the fetch registry.
type GitHubApiFetcher struct {
	client *github.Client
}

// NewGitHubApiFetcher builds a fetcher using an optional token for higher
// rate limits; an empty token yields anonymous, rate-limited access.
func NewGitHubApiFetcher(token string) *GitHubApiFetcher {
	client := github.NewClient(nil)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHubApiFetcher{client: client}
}

func NewGitHubApiFetcherWithHTTPClient(token string, httpClient *http.Client) *GitHubApiFetcher {
	client := github.NewClient(httpClient)
	if token != "" {
		client = client.WithAuthToken(token)
	}

	return &GitHubApiFetcher{client: client}
}

// DefaultBranch returns the repo's default branch, falling back to "main"
// if the repo lookup fails (§6).
func (f *GitHubApiFetcher) DefaultBranch(ctx context.Context, owner, repo string) string {
	if err := ctx.Err(); err != nil {
		return "main"
	}

	repository, _, err := f.client.Repositories.Get(ctx, owner, repo)
	if err != nil || repository == nil || repository.GetDefaultBranch() == "" {
		return "main"
	}

	return repository.GetDefaultBranch()
}

// Tree walks the repo's tree recursively at branch and returns blob/tree
// entries.
func (f *GitHubApiFetcher) Tree(ctx context.Context, owner, repo, branch string) ([]TreeEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Cause: err}
	}

	tree, _, err := f.client.Git.GetTree(ctx, owner, repo, branch, true)
	if err != nil {
		return nil, &ScraperError{Retryable: true, Cause: err, Message: "could not walk github tree"}
	}

	entries := make([]TreeEntry, 0, len(tree.Entries))
	for _, entry := range tree.Entries {
		entries = append(entries, TreeEntry{
			Path: entry.GetPath(),
			Type: entry.GetType(),
			Size: int64(entry.GetSize()),
		})
	}

	return entries, nil
}

// RawURL builds the raw.githubusercontent.com URL for a file at branch.
func RawURL(owner, repo, branch, path string) string {
	return "https://raw.githubusercontent.com/" + owner + "/" + repo + "/" + branch + "/" + path
}

// BlobURL builds the github.com blob view URL for a file at branch,
// used in document metadata.
func BlobURL(owner, repo, branch, path string) string {
	return "https://github.com/" + owner + "/" + repo + "/blob/" + branch + "/" + path
}
