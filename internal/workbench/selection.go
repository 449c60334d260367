package workbench

// Selection is the cursor-style panel state. Account and ring selections are
// independent and never cross-checked against the current entities: selecting
// an id with no match simply highlights nothing downstream.
type Selection struct {
	AccountID *string `json:"accountId"`
	RingID    *string `json:"ringId"`

	RingFocus bool `json:"ringFocus"`

	WhyPanelOpen      bool   `json:"whyPanelOpen"`
	WhyPanelAccountID string `json:"whyPanelAccountId,omitempty"`
}

// SelectAccount sets the selected account id. Nil clears the selection.
func (w *Workbench) SelectAccount(id *string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selection.AccountID = id
}

// SelectRing sets the selected ring id. Nil clears the selection.
func (w *Workbench) SelectRing(id *string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selection.RingID = id
}

// SetRingFocus toggles ring focus mode.
func (w *Workbench) SetRingFocus(enabled bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selection.RingFocus = enabled
}

// OpenWhyPanel shows the explanation panel for an account. The shown flag
// and the target id change together.
func (w *Workbench) OpenWhyPanel(accountID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selection.WhyPanelOpen = true
	w.selection.WhyPanelAccountID = accountID
}

// CloseWhyPanel hides the explanation panel and clears its target.
func (w *Workbench) CloseWhyPanel() {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.selection.WhyPanelOpen = false
	w.selection.WhyPanelAccountID = ""
}
