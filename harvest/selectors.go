package harvest

// Row-local selectors. The expand and collapse chains are tried in order;
// the site's markup has shipped several variants of these controls and the
// first hit wins.
const (
	operatorSel  = ".travels"
	busTypeSel   = ".bus-type"
	departSel    = ".dp-time"
	departLocSel = ".dp-loc"
	arriveSel    = ".bp-time"
	arriveLocSel = ".bp-loc"
	durationSel  = ".dur"

	visibleFareSel = ".fare .f-bold"

	discountPriceSel = ".discountPrice li.disPrice:not(.price-selected)"
	multiFareSel     = ".multiFare li.mulfare:not(.price-selected)"
	anyPriceSel      = "[data-price]"

	priceAttr = "data-price"
	// priceAllSentinel marks the "all seats" aggregate entry, which is not
	// a fare.
	priceAllSentinel = "ALL"
)

var viewSeatsSelectors = []string{
	".button.view-seats",
	".view-seats",
	"div.button.view-seats",
	"div.view-seats",
	".button:not(.hide-seats)",
	"div.button:not(.hide-seats)",
}

var hideSeatsSelectors = []string{
	".hideSeats",
	".hide-seats",
	"div.hideSeats",
	"div.hide-seats",
	".button.hideSeats",
	".button.hide-seats",
}

var viewSeatsTexts = []string{"view seats"}
