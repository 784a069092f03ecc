package fetch

func init() {
	Register("http", func() Fetcher { return NewHttpFetcher() })
	Register("file", func() Fetcher { return NewFileFetcher() })
}
