// Package restclient builds ready-to-use restwrap clients from a Config.
//
// It wires the pieces a typical API needs: the resource mapping, an HTTP
// transport with optional retries, OAuth2 or static bearer authentication,
// default headers, the paging rule and an optional response cache.
//
//	client, err := restclient.New(&restclient.Config{
//		ResourcesFile: "resources.yml",
//		AccessToken:   os.Getenv("API_TOKEN"),
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer client.Close()
//
//	user, err := client.Resource("user", restwrap.Params{"id": "123"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	resp, err := user.Get(ctx)
package restclient
