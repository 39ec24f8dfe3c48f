package api

import (
	"bytes"
	"net/http"
	"text/template"

	"github.com/gin-gonic/gin"
)

// UserscriptPaths are the routes serving the userscript.
var UserscriptPaths = []string{"/userscript", "/userscript.user.js", "/NovaSportAutoCheck.user.js"}

// UserscriptParams are substituted into the userscript.
type UserscriptParams struct {
	Email string
	Port  int
	// Interval is the delay between two token POSTs, in seconds.
	Interval int
}

var userscriptTemplate = template.Must(template.New("userscript").Parse(`// ==UserScript==
// @name        NovaSportAutoCheck
// @namespace   Violentmonkey Scripts
// @match       https://login.novasport.be/
// @grant       none
// @version     1.0
// @author      -
// @description Publishes the NovaSport access token to the local relay
// ==/UserScript==


const STORAGE_KEY = "CognitoIdentityServiceProvider.68majga0ulte4tt8tmpismer85.{{.Email}}.accessToken";
const URL = "http://localhost:{{.Port}}/token";
const INTERVAL = {{.Interval}} * 1000;

function getAuthToken() {
  return localStorage.getItem(STORAGE_KEY);
}

async function postToken(tokenValue) {
  const request = {
    method: 'POST',
    headers: new Headers({'content-type': 'application/json'}),
    body: JSON.stringify({token: tokenValue})
  };
  const resp = await fetch(URL, request);
  const json_resp = await resp.json();
  console.log(json_resp);
}

function process() {
  const token = getAuthToken();
  console.log('Token to POST', token);
  postToken(token);
  setTimeout(process, INTERVAL);
}

process();
`))

// RenderUserscript renders the userscript for p.
func RenderUserscript(p UserscriptParams) ([]byte, error) {
	var buf bytes.Buffer
	if err := userscriptTemplate.Execute(&buf, p); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GetUserscript serves the rendered userscript.
func (h *Handler) GetUserscript(c *gin.Context) {
	script, err := RenderUserscript(h.userscript)
	if err != nil {
		h.logger.Error("failed to render userscript", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to render userscript"})
		return
	}
	c.Data(http.StatusOK, "application/javascript; charset=utf-8", script)
}
