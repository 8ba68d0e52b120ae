package domain

import "errors"

var (
	// ErrInternalServerError will throw if any the Internal Server Error happen
	ErrInternalServerError = errors.New("Internal Server Error")
	// ErrNotFound will throw if the requested item is not exists
	ErrNotFound = errors.New("Your requested Item is not found")
	// ErrBadParamInput will throw if the given request-body or params is not valid
	ErrBadParamInput = errors.New("Given Param is not valid")

	// authorization
	ErrNotOwner     = errors.New("caller is not the asset owner")
	ErrNotSeller    = errors.New("caller is not the seller")
	ErrUnauthorized = errors.New("unauthorized")

	// invalid input
	ErrInvalidAddress           = errors.New("Invalid address")
	ErrInvalidPrice             = errors.New("invalid price")
	ErrInvalidListingType       = errors.New("invalid listing type")
	ErrInvalidAuctionParameters = errors.New("invalid auction parameters")
	ErrInvalidNFTCount          = errors.New("invalid nft count")
	ErrInvalidOfferDuration     = errors.New("invalid offer duration")
	ErrInvalidPageSize          = errors.New("invalid page size")
	ErrInvalidSortOrder         = errors.New("invalid sort order")

	// state conflict
	ErrAlreadyListed               = errors.New("asset already has an active listing")
	ErrListingNotActive            = errors.New("listing is not active")
	ErrAuctionNotActive            = errors.New("auction is not active")
	ErrAuctionStillRunning         = errors.New("auction has not reached its end time")
	ErrAuctionEnded                = errors.New("auction already ended")
	ErrHasBids                     = errors.New("auction has bids")
	ErrOnAuctionWithBids           = errors.New("listing is on auction with bids")
	ErrNFTOnAuction                = errors.New("asset is on auction")
	ErrBidTooLow                   = errors.New("bid is too low")
	ErrExceedsMaxDuration          = errors.New("duration exceeds maximum")
	ErrBelowStartingPrice          = errors.New("reserve price is below starting price")
	ErrHighestBidderCannotWithdraw = errors.New("highest bidder cannot withdraw")
	ErrNoActiveOffer               = errors.New("no active collection offer")
	ErrOfferAlreadyActive          = errors.New("an active offer already exists for this collection")
	ErrOfferBelowFloorPrice        = errors.New("offer is below collection floor price")

	// funds
	ErrInsufficientPayment = errors.New("insufficient payment")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrFeeTransferFailed   = errors.New("fee transfer failed")
	ErrSellerPaymentFailed = errors.New("seller payment failed")
	ErrExcessRefundFailed  = errors.New("excess refund failed")

	// consistency, detected at settlement time since ownership may have
	// changed outside the marketplace after listing
	ErrSellerNoLongerOwnsNFT = errors.New("seller no longer owns the asset")
	ErrNotTokenOwner         = errors.New("transfer sender does not own the asset")
)
