// Package httpclient builds and sends the requests of a dbjourney session.
//
// A single [NewClient] owns the pooled transport. Each session wraps it with
// [NewSessionClient], which adds a fresh cookie jar so that the login cookie
// of one virtual user never leaks into another.
//
//	base := httpclient.NewClient(60 * time.Second)
//	builder, err := httpclient.NewRequestBuilder(target, httpclient.BrowserHeaders())
//	if err != nil {
//		return err
//	}
//	req, err := builder.Build(ctx, http.MethodPost, "/registration", httpclient.NewFormBody(form), true)
//	resp := httpclient.Do(httpclient.NewSessionClient(base), req)
//
// [Do] never returns an error. Transport failures surface as a [Response]
// with status 0 and an empty body so that assertions simply fail.
package httpclient
