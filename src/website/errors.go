package website

import "net/http"

func FourOhFour(c *RequestContext) ResponseData {
	res := ResponseData{
		StatusCode: http.StatusNotFound,
	}
	res.WriteJson(map[string]string{"error": "not found"})
	return res
}
